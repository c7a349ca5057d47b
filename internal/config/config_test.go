package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/parser"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "taggable", cfg.Database)
	assert.Equal(t, []string{","}, cfg.Tagging.Delimiters)
	assert.Equal(t, "tags", cfg.Tagging.TagsCollection)
	assert.Equal(t, "taggings", cfg.Tagging.TaggingsCollection)
	assert.False(t, cfg.Tagging.PreserveTagOrder)
	assert.True(t, parser.Same(parser.MustNew(","), cfg.Tagging.Parser))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MONGO_DATABASE", "tagging_test")
	t.Setenv("TAG_DELIMITERS", ",|;")
	t.Setenv("TAG_FORCE_LOWERCASE", "true")
	t.Setenv("TAG_PRESERVE_ORDER", "true")
	t.Setenv("TAGGABLE_CONTEXTS", "Article:tags|skills,User:languages")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tagging_test", cfg.Database)
	assert.Equal(t, []string{",", ";"}, cfg.Tagging.Delimiters)
	assert.True(t, cfg.Tagging.ForceLowercase)
	assert.True(t, cfg.Tagging.PreserveTagOrder)
	assert.Equal(t, map[string][]string{
		"Article": {"tags", "skills"},
		"User":    {"languages"},
	}, cfg.Contexts())
}

func TestLoadRejectsBadDelimiter(t *testing.T) {
	t.Setenv("TAG_DELIMITERS", "(")

	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultTagging(t *testing.T) {
	d := DefaultTagging()

	assert.Equal(t, []string{","}, d.Delimiters)
	assert.NotNil(t, d.Parser)
	assert.False(t, d.StrictCaseMatch)
}
