package repositories

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateTag matches every DuplicateTagError.
var ErrDuplicateTag = errors.New("duplicate tag")

// DuplicateTagError reports that concurrent writers kept creating the same tags
// and find-or-create gave up.
type DuplicateTagError struct {
	Context  string
	Names    []string
	Attempts int
	Err      error
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("duplicate tag in context %q after %d attempts (%s): %v",
		e.Context, e.Attempts, strings.Join(e.Names, ", "), e.Err)
}

func (e *DuplicateTagError) Is(target error) bool {
	return target == ErrDuplicateTag
}

func (e *DuplicateTagError) Unwrap() error {
	return e.Err
}
