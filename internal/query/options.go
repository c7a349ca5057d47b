package query

import (
	"fmt"
	"time"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/parser"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

// Mode is the set predicate applied to the tags of each entity.
type Mode int

const (
	// All keeps entities tagged with every requested tag.
	All Mode = iota
	// Any keeps entities tagged with at least one requested tag.
	Any
	// MatchAll keeps entities tagged with exactly the requested tags.
	MatchAll
	// Exclude keeps tagged entities sharing no tag with the request.
	Exclude
)

func (m Mode) String() string {
	switch m {
	case Any:
		return "any"
	case MatchAll:
		return "match_all"
	case Exclude:
		return "exclude"
	default:
		return "all"
	}
}

// Options configure a tagged-with query. With no mode flag set the query runs
// in All mode; when several are set Exclude wins over Any, Any over MatchAll.
type Options struct {
	// On names the contexts searched; empty means every context of the type.
	On       []string
	Exclude  bool
	Any      bool
	MatchAll bool
	All      bool
	// StartAt and EndAt bound the creation time of matching taggings,
	// inclusive and exclusive.
	StartAt *time.Time
	EndAt   *time.Time
	// Wild matches each tag as a case-insensitive substring.
	Wild   bool
	Parse  bool
	Parser parser.Parser
}

func (o Options) Mode() Mode {
	switch {
	case o.Exclude:
		return Exclude
	case o.Any:
		return Any
	case o.MatchAll:
		return MatchAll
	default:
		return All
	}
}

var optionKeys = []string{
	"on", "context", "exclude", "any", "match_all", "all",
	"start_at", "end_at", "wild", "parse", "parser",
}

// OptionsFromMap decodes string-keyed options, rejecting unknown keys and
// values of the wrong type. "on" and "context" are synonyms and take a string
// or a []string.
func OptionsFromMap(m map[string]any) (Options, error) {
	var opts Options
	if err := tagtype.AssertValidKeys(m, optionKeys...); err != nil {
		return opts, err
	}

	for _, key := range []string{"on", "context"} {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch c := v.(type) {
		case string:
			opts.On = append(opts.On, c)
		case []string:
			opts.On = append(opts.On, c...)
		default:
			return opts, invalid(key, "a string or []string", v)
		}
	}

	flags := map[string]*bool{
		"exclude":   &opts.Exclude,
		"any":       &opts.Any,
		"match_all": &opts.MatchAll,
		"all":       &opts.All,
		"wild":      &opts.Wild,
		"parse":     &opts.Parse,
	}
	for key, dst := range flags {
		v, ok := m[key]
		if !ok {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			return opts, invalid(key, "a bool", v)
		}
		*dst = b
	}

	times := map[string]**time.Time{"start_at": &opts.StartAt, "end_at": &opts.EndAt}
	for key, dst := range times {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			*dst = &t
		case *time.Time:
			*dst = t
		default:
			return opts, invalid(key, "a time.Time", v)
		}
	}

	if v, ok := m["parser"]; ok {
		p, ok := v.(parser.Parser)
		if !ok {
			return opts, invalid("parser", "a parser.Parser", v)
		}
		opts.Parser = p
	}
	return opts, nil
}

func invalid(key, want string, got any) error {
	return fmt.Errorf("%w: %s must be %s, got %T", tagtype.ErrInvalidOption, key, want, got)
}
