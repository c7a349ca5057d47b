package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TagCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taggable_tag_created_total",
		Help: "Total number of tags created.",
	}, []string{"context"})
	TagRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taggable_tag_removed_total",
		Help: "Total number of tags destroyed, explicitly or because they became unused.",
	}, []string{"context"})
	DuplicateTagRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taggable_duplicate_tag_retries_total",
		Help: "Total number of find-or-create retries caused by concurrent tag creation.",
	}, []string{"context"})

	TaggingCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taggable_tagging_created_total",
		Help: "Total number of taggings created by tag list reconciliation.",
	}, []string{"context"})
	TaggingDestroyedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taggable_tagging_destroyed_total",
		Help: "Total number of taggings destroyed by tag list reconciliation.",
	}, []string{"context"})

	TaggedWithQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taggable_tagged_with_queries_total",
		Help: "Total number of tagged-with queries built.",
	}, []string{"mode"}) // mode: all, any, exclude, match_all
)
