// Package classify partitions choreography matches into presentation
// groups by their declared fit, patches over a model that forgot to
// declare compatible matches, and caps every group to the requested
// size.
package classify

import (
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bootstobeats/stepfinder/internal/model"
)

// Groups holds the partitioned matches. The three slices are disjoint
// and together contain every input item up to the per-group cap.
type Groups struct {
	Dedicated  []model.Choreography `json:"dedicated"`
	Compatible []model.Choreography `json:"compatible"`
	Other      []model.Choreography `json:"other"`
}

// Partition splits items by declared fit type, then applies the
// zero-compatible fallback and caps each group to limit.
//
// The fallback runs only when the model declared no compatible matches
// at all: items from the other two groups whose name and reason never
// mention the requested song title are re-targeted as compatible,
// earlier-ranked first, at most limit of them. The check is a folded
// substring match (case-insensitive, diacritics stripped), so it stays
// a heuristic: a generic dance that happens to quote the title keeps
// its declared group.
//
// Targets are computed for all items before any group is built, so the
// pass never reads a partially updated partition.
func Partition(items []model.Choreography, songTitle string, limit int) Groups {
	targets := make([]model.FitType, len(items))
	compatible := 0
	for i, c := range items {
		targets[i] = foldFit(c.Fit)
		if targets[i] == model.FitCompatible {
			compatible++
		}
	}

	if compatible == 0 && len(items) > 0 {
		moved := retargetMissingTitle(items, targets, songTitle, limit)
		if moved > 0 {
			zap.L().Debug("no compatible matches declared, re-targeted by song title",
				zap.String("song", songTitle),
				zap.Int("moved", moved))
		}
	}

	var g Groups
	for i, c := range items {
		switch targets[i] {
		case model.FitDedicated:
			g.Dedicated = append(g.Dedicated, c)
		case model.FitCompatible:
			g.Compatible = append(g.Compatible, c)
		default:
			g.Other = append(g.Other, c)
		}
	}

	g.Dedicated = capGroup(g.Dedicated, limit)
	g.Compatible = capGroup(g.Compatible, limit)
	g.Other = capGroup(g.Other, limit)
	return g
}

// retargetMissingTitle marks as compatible up to limit items whose text
// never mentions the song title, preferring lower ranks. Returns how
// many were moved.
func retargetMissingTitle(items []model.Choreography, targets []model.FitType, songTitle string, limit int) int {
	title := Fold(songTitle)
	if title == "" {
		return 0
	}

	var candidates []int
	for i, c := range items {
		if strings.Contains(Fold(c.Name+" "+c.Reason), title) {
			continue
		}
		candidates = append(candidates, i)
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return items[candidates[a]].Rank < items[candidates[b]].Rank
	})

	moved := 0
	for _, i := range candidates {
		if moved >= limit {
			break
		}
		targets[i] = model.FitCompatible
		moved++
	}
	return moved
}

func foldFit(ft model.FitType) model.FitType {
	switch ft {
	case model.FitDedicated, model.FitCompatible:
		return ft
	default:
		return model.FitUnknown
	}
}

func capGroup(items []model.Choreography, limit int) []model.Choreography {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips combining marks, so "Beyoncé" and
// "beyonce" compare equal in substring checks.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
