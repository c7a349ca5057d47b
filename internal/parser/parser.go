// Package parser turns raw tag input into tag names and tag names back into a
// single string.
package parser

import (
	"reflect"
	"slices"
	"strings"
)

// DefaultDelimiter separates tags when nothing else is configured.
const DefaultDelimiter = ","

// Parser splits raw input into tag names and joins tag names into one string.
// Parse performs no cleaning; trimming, folding and dedup belong to the tag list.
type Parser interface {
	Parse(values ...string) []string
	Stringify(tags []string) string
}

// GenericParser splits on DefaultDelimiter only, trimming fragments and
// dropping empty ones. It has no notion of quoting.
type GenericParser struct{}

func (GenericParser) Parse(values ...string) []string {
	var tags []string
	for _, value := range values {
		for _, fragment := range strings.Split(value, DefaultDelimiter) {
			fragment = strings.TrimSpace(fragment)
			if fragment != "" {
				tags = append(tags, fragment)
			}
		}
	}
	return tags
}

func (GenericParser) Stringify(tags []string) string {
	return strings.Join(tags, DefaultDelimiter)
}

type delimited interface {
	Delimiters() []string
}

// Same reports whether two parsers would treat input identically: same concrete
// type and, when they expose them, the same delimiters.
func Same(a, b Parser) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	da, ok := a.(delimited)
	if !ok {
		return true
	}
	db, ok := b.(delimited)
	if !ok {
		return false
	}
	return slices.Equal(da.Delimiters(), db.Delimiters())
}
