package postprocess

import (
	"errors"
	"fmt"
)

// Stages reported by PostProcessError.
const (
	StageDecode    = "decode"
	StageBgRemoval = "bg-removal"
	StageResize    = "resize"
	StageEncode    = "encode"
)

// PostProcessError is a failure of one post-processing stage. It only ever
// fails the current item.
type PostProcessError struct {
	Stage string
	Err   error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("postprocess: %s: %v", e.Stage, e.Err)
}

func (e *PostProcessError) Unwrap() error {
	return e.Err
}

// StageOf returns the failed stage carried by err, or "".
func StageOf(err error) string {
	var ppErr *PostProcessError
	if errors.As(err, &ppErr) {
		return ppErr.Stage
	}
	return ""
}
