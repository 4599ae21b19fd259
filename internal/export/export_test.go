package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/bootstobeats/stepfinder/internal/model"
)

func testSearches() []model.Search {
	created := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	return []model.Search{
		{
			ID: "search-1",
			Request: model.SearchRequest{
				SongTitle:  "Texas Hold 'Em",
				Artist:     "Beyoncé",
				Level:      model.LevelBeginner,
				Region:     "EU",
				MaxResults: 3,
			},
			Status: model.SearchStatusComplete,
			Outcome: &model.SearchOutcome{
				Dedicated: []model.Choreography{
					{Rank: 1, Name: "Golden Hour Stomp", EstimatedLevel: "Beginner",
						Type: model.MatchTypeStepSheet, URL: "https://example.com/stomp",
						Reason: "Written for this track"},
				},
				Compatible: []model.Choreography{
					{Rank: 1, Name: "Boogie Walk", EstimatedLevel: "Improver",
						Type: model.MatchTypeStepSheet, URL: "https://example.com/walk",
						Reason: "Same tempo"},
				},
				Provider:  "anthropic",
				TotalCost: 0.0135,
			},
			CreatedAt: created,
		},
		{
			ID:        "search-2",
			Request:   model.SearchRequest{SongTitle: "Jolene", MaxResults: 3},
			Status:    model.SearchStatusFailed,
			Error:     "no JSON object found in model output",
			CreatedAt: created.Add(time.Hour),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSearches()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	// Header, two match rows, one row for the failed search.
	require.Len(t, records, 4)

	assert.Equal(t, header, records[0])

	assert.Equal(t, "search-1", records[1][0])
	assert.Equal(t, "Texas Hold 'Em", records[1][2])
	assert.Equal(t, "dedicated", records[1][7])
	assert.Equal(t, "Golden Hour Stomp", records[1][9])
	assert.Equal(t, "0.0135", records[1][16])

	assert.Equal(t, "compatible", records[2][7])
	assert.Equal(t, "Boogie Walk", records[2][9])

	assert.Equal(t, "search-2", records[3][0])
	assert.Equal(t, "failed", records[3][6])
	assert.Equal(t, "", records[3][9])
	assert.Equal(t, "Any", records[3][4])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, header, records[0])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searches.xlsx")
	require.NoError(t, WriteXLSX(path, testSearches()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, "Searches", f.Sheets[0].Name)

	rows := f.Sheets[0].Rows
	require.Len(t, rows, 4)
	assert.Equal(t, "search_id", rows[0].Cells[0].String())
	assert.Equal(t, "search-1", rows[1].Cells[0].String())
	assert.Equal(t, "Golden Hour Stomp", rows[1].Cells[9].String())
	assert.Equal(t, "Jolene", rows[3].Cells[2].String())
}
