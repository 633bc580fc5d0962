package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synapse_turns_total",
		Help: "Assistant turns processed.",
	})
	checkpointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synapse_checkpoints_total",
		Help: "Turns that landed on a consolidation checkpoint.",
	})
	eventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synapse_events_total",
		Help: "Prediction events observed.",
	})
	capturesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synapse_captures_total",
		Help: "Memories auto-captured from surprising events.",
	})
	retrievedMemories = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "synapse_retrieved_memories",
		Help:    "Ranked memories returned per turn.",
		Buckets: prometheus.LinearBuckets(0, 2, 8),
	})
)
