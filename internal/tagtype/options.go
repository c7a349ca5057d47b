package tagtype

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ErrInvalidOption is returned for option keys a decoder does not recognize.
var ErrInvalidOption = errors.New("invalid option")

// AssertValidKeys fails with ErrInvalidOption when opts holds a key that is not
// in allowed.
func AssertValidKeys(opts map[string]any, allowed ...string) error {
	var unknown []string
	for key := range opts {
		if !slices.Contains(allowed, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: unknown key(s) %s; valid keys are %s",
		ErrInvalidOption, strings.Join(unknown, ", "), strings.Join(allowed, ", "))
}
