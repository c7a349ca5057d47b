// Package diff computes which taggings a save has to destroy and create to turn
// the currently associated tags into the desired ones.
package diff

import (
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

// TagListDiff is a single-use computation for one context of one entity.
// Tags is the desired list in desired order; CurrentTags are the associated
// tags in tagging creation order.
type TagListDiff struct {
	TagType     *tagtype.TagType
	Tags        []models.Tag
	CurrentTags []models.Tag

	OldTags    []models.Tag
	NewTags    []models.Tag
	SharedTags []models.Tag
}

// New computes the diff. Both inputs are deduplicated by tag identity first.
func New(def *tagtype.TagType, tags, currentTags []models.Tag) *TagListDiff {
	d := &TagListDiff{
		TagType:     def,
		Tags:        uniq(tags),
		CurrentTags: uniq(currentTags),
	}
	d.call()
	return d
}

func (d *TagListDiff) call() {
	d.OldTags = minus(d.CurrentTags, d.Tags)
	d.NewTags = minus(d.Tags, d.CurrentTags)

	if !d.TagType.PreserveTagOrder() {
		return
	}
	d.SharedTags = intersect(d.CurrentTags, d.Tags)
	if len(d.SharedTags) == 0 || sameKeys(d.SharedTags, d.Tags[:len(d.SharedTags)]) {
		return
	}
	d.preserveOrder()
}

// preserveOrder evicts every current tag from the first shared tag that sits
// out of place onward. Order is only recorded by tagging creation time, so the
// evicted tags are destroyed and created again in desired order.
func (d *TagListDiff) preserveOrder() {
	index := firstDifference(d.SharedTags, d.Tags)
	divergent := d.SharedTags[index].Key()

	pos := 0
	for i, tag := range d.CurrentTags {
		if tag.Key() == divergent {
			pos = i
			break
		}
	}
	evicted := d.CurrentTags[pos:]

	d.OldTags = uniq(append(d.OldTags, evicted...))

	recreate := keySet(append(d.NewTags, evicted...))
	d.NewTags = d.NewTags[:0:0]
	for _, tag := range d.Tags {
		if recreate[tag.Key()] {
			d.NewTags = append(d.NewTags, tag)
		}
	}
}

// Empty reports whether the save has nothing to do.
func (d *TagListDiff) Empty() bool {
	return len(d.OldTags) == 0 && len(d.NewTags) == 0
}

// OldTagNames are the names of the taggings to destroy.
func (d *TagListDiff) OldTagNames() []string {
	names := make([]string, len(d.OldTags))
	for i, tag := range d.OldTags {
		names[i] = tag.Name
	}
	return names
}

func firstDifference(shared, tags []models.Tag) int {
	for i := range shared {
		if shared[i].Key() != tags[i].Key() {
			return i
		}
	}
	return len(shared) - 1
}

func keySet(tags []models.Tag) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[tag.Key()] = true
	}
	return set
}

func uniq(tags []models.Tag) []models.Tag {
	seen := make(map[string]bool, len(tags))
	out := make([]models.Tag, 0, len(tags))
	for _, tag := range tags {
		if !seen[tag.Key()] {
			seen[tag.Key()] = true
			out = append(out, tag)
		}
	}
	return out
}

func minus(a, b []models.Tag) []models.Tag {
	drop := keySet(b)
	out := make([]models.Tag, 0, len(a))
	for _, tag := range a {
		if !drop[tag.Key()] {
			out = append(out, tag)
		}
	}
	return out
}

func intersect(a, b []models.Tag) []models.Tag {
	keep := keySet(b)
	out := make([]models.Tag, 0, len(a))
	for _, tag := range a {
		if keep[tag.Key()] {
			out = append(out, tag)
		}
	}
	return out
}

func sameKeys(a, b []models.Tag) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key() != b[i].Key() {
			return false
		}
	}
	return true
}
