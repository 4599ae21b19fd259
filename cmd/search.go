package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/internal/search"
)

var (
	searchSong    string
	searchArtist  string
	searchLevel   string
	searchRegion  string
	searchMax     int
	searchSingle  bool
	searchAsJSON  bool
	searchNoCache bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for choreographies matching a song",
	Example: `  stepfinder search --song "Texas Hold 'Em" --artist "Beyoncé"
  stepfinder search --song "Jolene" --level improver --region EU --max 5 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}

		level, err := model.ParseLevel(searchLevel)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Search.Timeout())
		defer cancel()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		provider, err := initProvider()
		if err != nil {
			return err
		}

		if searchSingle {
			cfg.Search.SplitCalls = false
		}
		if searchNoCache {
			cfg.Search.CacheEnabled = false
		}

		req := model.SearchRequest{
			SongTitle:  searchSong,
			Artist:     searchArtist,
			Level:      level,
			Region:     model.NormalizeRegion(searchRegion, ""),
			MaxResults: searchMax,
		}

		sr, err := search.New(cfg, st, provider).Run(ctx, req)
		if err != nil {
			if sr != nil && sr.Outcome != nil {
				renderRawCalls(os.Stderr, sr.Outcome)
			}
			return eris.Wrap(err, "search")
		}

		if searchAsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sr)
		}

		renderSearch(os.Stdout, sr)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchSong, "song", "", "song title (required)")
	searchCmd.Flags().StringVar(&searchArtist, "artist", "", "artist name")
	searchCmd.Flags().StringVar(&searchLevel, "level", "Any", "desired level (Beginner, High Beginner, Improver, Intermediate, Advanced, Any)")
	searchCmd.Flags().StringVar(&searchRegion, "region", "", "region hint (EU, US, UK, or free text; empty means anywhere)")
	searchCmd.Flags().IntVar(&searchMax, "max", model.DefaultMaxResults, "max choreographies per group (1-5)")
	searchCmd.Flags().BoolVar(&searchSingle, "single-call", false, "use one combined call instead of the analysis + compatible pair")
	searchCmd.Flags().BoolVar(&searchAsJSON, "json", false, "print the full search record as JSON")
	searchCmd.Flags().BoolVar(&searchNoCache, "no-cache", false, "skip the outcome cache for this search")
	_ = searchCmd.MarkFlagRequired("song")
	rootCmd.AddCommand(searchCmd)
}

// renderSearch writes the human-readable result: song analysis, the
// classified groups, raw output for any failed call, and a cost line.
func renderSearch(out io.Writer, sr *model.Search) {
	o := sr.Outcome
	if o == nil {
		_, _ = fmt.Fprintln(out, "No outcome recorded.")
		return
	}

	if o.SongInfo != nil {
		renderProfile(out, o.SongInfo)
	}

	if o.Empty() {
		_, _ = fmt.Fprintln(out, "No suitable choreographies found (or the model could not identify any).")
	} else {
		renderGroup(out, "Dedicated to this song", o.Dedicated)
		renderGroup(out, "Compatible dances", o.Compatible)
		renderGroup(out, "Other finds", o.Other)
	}

	renderRawCalls(out, o)

	cache := ""
	if o.FromCache {
		cache = " (cached)"
	}
	_, _ = fmt.Fprintf(out, "\n%s/%s · %d ms · %d tokens in / %d out · estimated $%.4f%s\n",
		o.Provider, o.Model, o.Elapsed,
		o.Usage.InputTokens, o.Usage.OutputTokens, o.TotalCost, cache)
}

func renderProfile(out io.Writer, p *model.SongProfile) {
	_, _ = fmt.Fprintln(out, "Song analysis")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	line := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			_, _ = fmt.Fprintf(w, "  %s:\t%s\n", label, value)
		}
	}
	line("BPM", p.BPM)
	line("Tempo", p.TempoLabel)
	line("Style", p.Style)
	line("Time signature", p.TimeSignature)
	line("Dance feel", p.DanceFeel)
	line("Typical styles", strings.Join(p.TypicalDanceStyles, ", "))
	line("Summary", p.Summary)
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
}

func renderGroup(out io.Writer, title string, items []model.Choreography) {
	if len(items) == 0 {
		return
	}

	_, _ = fmt.Fprintln(out, title)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  #\tNAME\tLEVEL\tREGION\tTYPE\tURL")
	for _, c := range items {
		_, _ = fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\t%s\n",
			c.Rank, c.Name, c.EstimatedLevel, c.EstimatedRegion, c.Type, c.URL)
	}
	_ = w.Flush()
	for _, c := range items {
		if strings.TrimSpace(c.Reason) != "" {
			_, _ = fmt.Fprintf(out, "  %s: %s\n", c.Name, c.Reason)
		}
	}
	_, _ = fmt.Fprintln(out)
}

// renderRawCalls prints the verbatim transcript of every call whose
// payload could not be parsed.
func renderRawCalls(out io.Writer, o *model.SearchOutcome) {
	for _, c := range o.Calls {
		if c.OK || c.Raw == "" {
			continue
		}
		_, _ = fmt.Fprintf(out, "--- raw output (%s call) ---\n%s\n---\n", c.Name, c.Raw)
	}
}
