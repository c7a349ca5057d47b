package parser

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"
)

// DefaultParser understands several delimiters and quoted tags. A quoted span is
// taken whole when it starts the input or follows a delimiter and is followed by
// a delimiter or the end of input, so `a, "b, c"` yields "b, c" as one tag.
//
// Delimiters are regular expression fragments joined as alternation branches;
// they are not escaped.
type DefaultParser struct {
	delimiters  []string
	doubleQuote *regexp2.Regexp
	singleQuote *regexp2.Regexp
	split       *regexp2.Regexp
	escape      *regexp2.Regexp
}

// New compiles a DefaultParser for the given delimiters, defaulting to a comma.
func New(delimiters ...string) (*DefaultParser, error) {
	if len(delimiters) == 0 {
		delimiters = []string{DefaultDelimiter}
	}
	alternation := "(?:" + strings.Join(delimiters, "|") + ")"

	p := &DefaultParser{delimiters: slices.Clone(delimiters)}
	var err error
	if p.doubleQuote, err = regexp2.Compile(quotedSpan(alternation, `"`), regexp2.None); err != nil {
		return nil, fmt.Errorf("invalid tag delimiters %q: %w", delimiters, err)
	}
	if p.singleQuote, err = regexp2.Compile(quotedSpan(alternation, `'`), regexp2.None); err != nil {
		return nil, fmt.Errorf("invalid tag delimiters %q: %w", delimiters, err)
	}
	if p.split, err = regexp2.Compile(alternation, regexp2.None); err != nil {
		return nil, fmt.Errorf("invalid tag delimiters %q: %w", delimiters, err)
	}
	escapes := append(slices.Clone(delimiters), `"`, `'`)
	if p.escape, err = regexp2.Compile(strings.Join(escapes, "|"), regexp2.None); err != nil {
		return nil, fmt.Errorf("invalid tag delimiters %q: %w", delimiters, err)
	}
	return p, nil
}

// MustNew is New for delimiters known to be valid.
func MustNew(delimiters ...string) *DefaultParser {
	p, err := New(delimiters...)
	if err != nil {
		panic(err)
	}
	return p
}

func quotedSpan(delimiter, quote string) string {
	return `(\A|` + delimiter + `)\s*` + quote + `(.*?)` + quote + `\s*(?=` + delimiter + `\s*|\z)`
}

// Delimiters returns the configured delimiters; the first one joins tags.
func (p *DefaultParser) Delimiters() []string {
	return slices.Clone(p.delimiters)
}

// Parse extracts double-quoted spans, then single-quoted spans, then splits what
// is left. Quoted tags therefore come before the split fragments of the same
// input. Empty fragments are kept.
func (p *DefaultParser) Parse(values ...string) []string {
	var tags []string
	for _, value := range values {
		rest := extract(p.doubleQuote, value, &tags)
		rest = extract(p.singleQuote, rest, &tags)
		tags = append(tags, p.fragments(rest)...)
	}
	return tags
}

func extract(re *regexp2.Regexp, input string, tags *[]string) string {
	rest, err := re.ReplaceFunc(input, func(m regexp2.Match) string {
		*tags = append(*tags, m.GroupByNumber(2).String())
		return ""
	}, -1, -1)
	if err != nil {
		return input
	}
	return rest
}

func (p *DefaultParser) fragments(s string) []string {
	if s == "" {
		return nil
	}
	// regexp2 reports positions in runes.
	runes := []rune(s)
	var out []string
	start := 0
	m, err := p.split.FindStringMatch(s)
	for err == nil && m != nil {
		if m.Length > 0 {
			out = append(out, string(runes[start:m.Index]))
			start = m.Index + m.Length
		}
		m, err = p.split.FindNextMatch(m)
	}
	return append(out, string(runes[start:]))
}

// Stringify joins tags with the first delimiter, double-quoting any tag that
// contains a delimiter or a quote character.
func (p *DefaultParser) Stringify(tags []string) string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		if found, _ := p.escape.MatchString(tag); found {
			out[i] = `"` + tag + `"`
			continue
		}
		out[i] = tag
	}
	return strings.Join(out, p.delimiters[0])
}
