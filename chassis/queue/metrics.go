package queue

import (
	"path"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSentTotal ...
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_sent_total",
			Help: "Total number of messages sent per queue",
		},
		[]string{"queue"},
	)

	// MessagesReceivedTotal ...
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_received_total",
			Help: "Total number of messages received per queue",
		},
		[]string{"queue"},
	)

	// MessagesAcknowledgedTotal ...
	MessagesAcknowledgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_acknowledged_total",
			Help: "Total number of messages deleted after processing",
		},
		[]string{"queue"},
	)

	// AcknowledgeFailuresTotal ...
	AcknowledgeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_acknowledge_failures_total",
			Help: "Total number of failed message deletions",
		},
		[]string{"queue"},
	)

	// DecodeFailuresTotal counts bodies left in the queue for redelivery.
	DecodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_decode_failures_total",
			Help: "Total number of received messages that could not be decoded",
		},
		[]string{"queue"},
	)

	// ReceiveDuration ...
	ReceiveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_receive_duration_seconds",
			Help:    "Duration of long-poll receive calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 20, 30},
		},
	)
)

// Label is the metrics label of a queue address: its last path segment.
func Label(address string) string {
	return path.Base(address)
}
