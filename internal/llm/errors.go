package llm

import (
	"errors"
	"fmt"
)

// NoOutputError indicates the backend answered but the reply carried
// no usable text.
type NoOutputError struct {
	Provider string
}

func (e *NoOutputError) Error() string {
	return fmt.Sprintf("llm: %s returned no text output", e.Provider)
}

// IsNoOutput reports whether err is or wraps a NoOutputError.
func IsNoOutput(err error) bool {
	var noOutput *NoOutputError
	return errors.As(err, &noOutput)
}
