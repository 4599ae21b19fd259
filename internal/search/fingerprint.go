package search

import (
	"crypto/sha256"
	"fmt"

	"github.com/bootstobeats/stepfinder/internal/classify"
	"github.com/bootstobeats/stepfinder/internal/model"
)

// Fingerprint returns SHA-256 hex of the normalized request for cache
// lookup. Song, artist, and region are folded so capitalization and
// accents don't split cache entries. Provider, model, and call mode are
// part of the key: the same request against a different backend is a
// different search.
func Fingerprint(req model.SearchRequest, provider, modelName string, split bool) string {
	mode := "combined"
	if split {
		mode = "split"
	}
	normalized := fmt.Sprintf("%s|%s|%s|%s|%d|%s|%s|%s",
		classify.Fold(req.SongTitle),
		classify.Fold(req.Artist),
		string(req.LevelOrAny()),
		classify.Fold(req.Region),
		req.MaxResults,
		provider,
		modelName,
		mode,
	)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}
