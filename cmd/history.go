package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bootstobeats/stepfinder/internal/export"
	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past searches",
	Long:  "Commands for listing, viewing, summarizing, and exporting stored searches.",
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored searches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		song, _ := cmd.Flags().GetString("song")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.SearchFilter{
			Status: model.SearchStatus(status),
			Song:   song,
			Limit:  limit,
		}

		searches, err := st.ListSearches(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "history list")
		}

		if len(searches) == 0 {
			fmt.Fprintln(os.Stderr, "No searches found.")
			return nil
		}

		formatSearchList(os.Stdout, searches)
		return nil
	},
}

// -- history show --

var historyShowCmd = &cobra.Command{
	Use:   "show <search-id>",
	Short: "Show full details of a search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		sr, err := st.GetSearch(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "history show")
		}
		if sr == nil {
			return eris.Errorf("history show: search not found: %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sr)
	},
}

// -- history stats --

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate search statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetDuration("since")
		filter := store.SearchFilter{}
		if since > 0 {
			filter.CreatedAfter = time.Now().Add(-since)
		}
		filter.Limit = 10000 // high limit for stats

		searches, err := st.ListSearches(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "history stats")
		}

		stats := computeSearchStats(searches)
		formatSearchStats(os.Stdout, stats)
		return nil
	},
}

// -- history export --

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored searches to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		song, _ := cmd.Flags().GetString("song")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		outputPath, _ := cmd.Flags().GetString("output")

		filter := store.SearchFilter{
			Status: model.SearchStatus(status),
			Song:   song,
			Limit:  limit,
		}

		searches, err := st.ListSearches(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "history export")
		}

		return outputSearches(searches, format, outputPath)
	},
}

func init() {
	historyListCmd.Flags().String("status", "", "filter by search status (queued, searching, complete, failed)")
	historyListCmd.Flags().String("song", "", "filter by song title (substring match)")
	historyListCmd.Flags().Int("limit", 50, "max number of searches to display")

	historyStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	historyExportCmd.Flags().String("status", "", "filter by search status")
	historyExportCmd.Flags().String("song", "", "filter by song title (substring match)")
	historyExportCmd.Flags().Int("limit", 1000, "max number of searches to export")
	historyExportCmd.Flags().String("format", "csv", "output format: csv or xlsx")
	historyExportCmd.Flags().StringP("output", "o", "", "output file path (default stdout for csv)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

// outputSearches writes searches in the requested format, to a file
// when outputPath is set or stdout otherwise. XLSX always needs a path.
func outputSearches(searches []model.Search, format, outputPath string) error {
	switch format {
	case "csv":
		var w *os.File
		if outputPath != "" {
			var err error
			w, err = os.Create(outputPath)
			if err != nil {
				return eris.Wrapf(err, "history export: create output file %s", outputPath)
			}
			defer w.Close() //nolint:errcheck
		} else {
			w = os.Stdout
		}
		return export.WriteCSV(w, searches)
	case "xlsx":
		if outputPath == "" {
			return eris.New("history export: xlsx format requires --output")
		}
		return export.WriteXLSX(outputPath, searches)
	default:
		return eris.Errorf("history export: unsupported format %q", format)
	}
}

// searchStats holds aggregate statistics computed from a set of searches.
type searchStats struct {
	Total          int
	Complete       int
	Failed         int
	Other          int
	Matches        int
	CacheHits      int
	TotalCost      float64
	AvgElapsedSecs float64
}

// computeSearchStats computes aggregate statistics from a list of searches.
func computeSearchStats(searches []model.Search) searchStats {
	var s searchStats
	s.Total = len(searches)

	var totalElapsed int64
	var elapsedCount int

	for _, sr := range searches {
		switch sr.Status {
		case model.SearchStatusComplete:
			s.Complete++
		case model.SearchStatusFailed:
			s.Failed++
		default:
			s.Other++
		}

		if sr.Outcome == nil {
			continue
		}
		s.Matches += sr.Outcome.MatchCount()
		s.TotalCost += sr.Outcome.TotalCost
		if sr.Outcome.FromCache {
			s.CacheHits++
		}
		if sr.Outcome.Elapsed > 0 {
			totalElapsed += sr.Outcome.Elapsed
			elapsedCount++
		}
	}

	if elapsedCount > 0 {
		s.AvgElapsedSecs = float64(totalElapsed) / float64(elapsedCount) / 1000
	}
	return s
}

// formatSearchList writes a tabular list of searches to w.
func formatSearchList(out io.Writer, searches []model.Search) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSONG\tLEVEL\tSTATUS\tMATCHES\tCOST\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t------\t-------\t----\t-------")

	for _, sr := range searches {
		song := sr.Request.SongTitle
		if sr.Request.Artist != "" {
			song = song + " - " + sr.Request.Artist
		}
		if len(song) > 40 {
			song = song[:37] + "..."
		}

		matches := ""
		costStr := ""
		if sr.Outcome != nil {
			matches = fmt.Sprintf("%d", sr.Outcome.MatchCount())
			costStr = fmt.Sprintf("$%.4f", sr.Outcome.TotalCost)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(sr.ID),
			song,
			sr.Request.LevelOrAny(),
			sr.Status,
			matches,
			costStr,
			sr.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatSearchStats writes aggregate stats to w.
func formatSearchStats(out io.Writer, s searchStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total searches:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Other:\t%d\n", s.Other)
	_, _ = fmt.Fprintf(w, "Matches found:\t%d\n", s.Matches)
	_, _ = fmt.Fprintf(w, "Cache hits:\t%d\n", s.CacheHits)
	_, _ = fmt.Fprintf(w, "Estimated cost:\t$%.4f\n", s.TotalCost)
	if s.AvgElapsedSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg search time:\t%.1fs\n", s.AvgElapsedSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
