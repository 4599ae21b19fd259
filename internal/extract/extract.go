package extract

import (
	"encoding/json"
	"strings"

	"github.com/bootstobeats/stepfinder/internal/model"
)

// JSONBlock strips markdown fences and returns the substring from the
// first '{' through the last '}'. Models wrap their JSON in prose and
// code fences even when told not to; this recovers the object without
// attempting to balance braces. Extraction is idempotent: applied to a
// well-formed object it returns the object unchanged.
func JSONBlock(text string) (string, error) {
	cleaned := strings.TrimSpace(text)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return "", &NoJSONError{Text: text}
	}
	return cleaned[start : end+1], nil
}

// Payload locates the JSON block in a transcript and decodes it into a
// SearchPayload with enum fields normalized. A located block that does
// not decode fails with MalformedJSONError carrying the block.
func Payload(text string) (*model.SearchPayload, error) {
	block, err := JSONBlock(text)
	if err != nil {
		return nil, err
	}

	var payload model.SearchPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil, &MalformedJSONError{Snippet: block, Err: err}
	}
	payload.Normalize()
	return &payload, nil
}
