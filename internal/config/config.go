// Package config loads process-wide settings from the environment. Tagging
// holds the defaults every tag context falls back to when it does not set an
// option itself.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v9"
	_ "github.com/joho/godotenv/autoload"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/parser"
)

type Config struct {
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" envDefault:"taggable"`
	Port     int    `env:"PORT" envDefault:"8080"`

	RateLimit      float64  `env:"RATE_LIMIT" envDefault:"3"`
	RateBurst      int      `env:"RATE_BURST" envDefault:"5"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// TaggableContexts declares entity types and their contexts,
	// e.g. "Article:tags|skills,User:languages".
	TaggableContexts map[string]string `env:"TAGGABLE_CONTEXTS" envDefault:"Article:tags|skills" envKeyValSeparator:":"`

	Tagging Tagging
}

// Tagging is the global default layer of tag context options.
type Tagging struct {
	Delimiters         []string `env:"TAG_DELIMITERS" envDefault:"," envSeparator:"|"`
	ForceLowercase     bool     `env:"TAG_FORCE_LOWERCASE" envDefault:"false"`
	ForceParameterize  bool     `env:"TAG_FORCE_PARAMETERIZE" envDefault:"false"`
	StrictCaseMatch    bool     `env:"TAG_STRICT_CASE_MATCH" envDefault:"false"`
	PreserveTagOrder   bool     `env:"TAG_PRESERVE_ORDER" envDefault:"false"`
	RemoveUnusedTags   bool     `env:"TAG_REMOVE_UNUSED" envDefault:"false"`
	TagsCollection     string   `env:"TAGS_COLLECTION" envDefault:"tags"`
	TaggingsCollection string   `env:"TAGGINGS_COLLECTION" envDefault:"taggings"`

	// Parser is built from Delimiters by Load and DefaultTagging.
	Parser parser.Parser
}

// DefaultTagging returns the built-in defaults without consulting the environment.
func DefaultTagging() *Tagging {
	return &Tagging{
		Delimiters:         []string{parser.DefaultDelimiter},
		TagsCollection:     "tags",
		TaggingsCollection: "taggings",
		Parser:             parser.MustNew(parser.DefaultDelimiter),
	}
}

// Load reads the environment (and any .env file) into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	p, err := parser.New(cfg.Tagging.Delimiters...)
	if err != nil {
		return nil, err
	}
	cfg.Tagging.Parser = p
	return cfg, nil
}

// Contexts returns the contexts declared for each entity type in TaggableContexts.
func (c *Config) Contexts() map[string][]string {
	out := make(map[string][]string, len(c.TaggableContexts))
	for typeName, list := range c.TaggableContexts {
		typeName = strings.TrimSpace(typeName)
		if typeName == "" {
			continue
		}
		for _, context := range strings.Split(list, "|") {
			if context = strings.TrimSpace(context); context != "" {
				out[typeName] = append(out[typeName], context)
			}
		}
	}
	return out
}
