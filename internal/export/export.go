// Package export renders stored searches as CSV or XLSX, one row per
// choreography with the parent search's columns repeated. Searches
// without matches still get a row so the export covers the full
// history.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/bootstobeats/stepfinder/internal/model"
)

var header = []string{
	"search_id", "created_at", "song", "artist", "level", "region",
	"status", "group", "rank", "name", "estimated_level",
	"estimated_region", "type", "url", "reason", "provider",
	"estimated_cost_usd",
}

// WriteCSV writes the searches to w in CSV form.
func WriteCSV(w io.Writer, searches []model.Search) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write CSV header")
	}
	for _, row := range rows(searches) {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write CSV row")
		}
	}
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush CSV")
	}
	return nil
}

// WriteXLSX writes the searches to an XLSX workbook at path.
func WriteXLSX(path string, searches []model.Search) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Searches")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, row := range rows(searches) {
		xr := sheet.AddRow()
		for _, cell := range row {
			xr.AddCell().SetString(cell)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func rows(searches []model.Search) [][]string {
	var out [][]string
	for i := range searches {
		sr := &searches[i]
		if sr.Outcome == nil || sr.Outcome.MatchCount() == 0 {
			out = append(out, row(sr, "", nil))
			continue
		}
		for j := range sr.Outcome.Dedicated {
			out = append(out, row(sr, "dedicated", &sr.Outcome.Dedicated[j]))
		}
		for j := range sr.Outcome.Compatible {
			out = append(out, row(sr, "compatible", &sr.Outcome.Compatible[j]))
		}
		for j := range sr.Outcome.Other {
			out = append(out, row(sr, "other", &sr.Outcome.Other[j]))
		}
	}
	return out
}

func row(sr *model.Search, group string, c *model.Choreography) []string {
	var provider, cost string
	if sr.Outcome != nil {
		provider = sr.Outcome.Provider
		cost = fmt.Sprintf("%.4f", sr.Outcome.TotalCost)
	}

	cells := []string{
		sr.ID,
		sr.CreatedAt.Format(time.RFC3339),
		sr.Request.SongTitle,
		sr.Request.Artist,
		string(sr.Request.LevelOrAny()),
		sr.Request.Region,
		string(sr.Status),
		group,
	}
	if c != nil {
		cells = append(cells,
			fmt.Sprintf("%d", c.Rank),
			c.Name,
			c.EstimatedLevel,
			c.EstimatedRegion,
			string(c.Type),
			c.URL,
			c.Reason,
		)
	} else {
		cells = append(cells, "", "", "", "", "", "", "")
	}
	return append(cells, provider, cost)
}
