// Package extract recovers the structured payload from a model
// transcript: locate the JSON object in the surrounding chatter, then
// decode it. Each stage fails with a typed error carrying enough of the
// offending text to debug a bad answer.
package extract

import (
	"errors"
	"fmt"
)

const previewLimit = 120

// NoJSONError means the transcript contains no JSON object boundaries:
// no '{', no '}', or the last '}' before the first '{'.
type NoJSONError struct {
	Text string
}

func (e *NoJSONError) Error() string {
	return fmt.Sprintf("extract: no JSON object in model output (%s)", preview(e.Text))
}

// MalformedJSONError means a JSON block was located but did not decode.
// Snippet holds the exact substring handed to the decoder.
type MalformedJSONError struct {
	Snippet string
	Err     error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("extract: malformed JSON in model output: %v (%s)", e.Err, preview(e.Snippet))
}

func (e *MalformedJSONError) Unwrap() error {
	return e.Err
}

// IsNoJSON reports whether err is a NoJSONError.
func IsNoJSON(err error) bool {
	var nj *NoJSONError
	return errors.As(err, &nj)
}

// IsMalformedJSON reports whether err is a MalformedJSONError.
func IsMalformedJSON(err error) bool {
	var mj *MalformedJSONError
	return errors.As(err, &mj)
}

func preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "..."
}
