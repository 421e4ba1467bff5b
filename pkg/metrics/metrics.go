package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Kafka   KafkaMetrics
	API     APIMetrics
	Outbox  OutboxMetrics
	Replica ReplicaMetrics
}

type KafkaMetrics struct {
	// Producer
	ProducerAttemptLatencySeconds *prometheus.HistogramVec
	ProducerOperationsTotal       *prometheus.CounterVec

	// Consumer
	ConsumerMessagesTotal   *prometheus.CounterVec
	ConsumerProcessDuration *prometheus.HistogramVec
	ConsumerRebalancesTotal *prometheus.CounterVec
	ConsumerInFlight        *prometheus.GaugeVec
}

type APIMetrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

type OutboxMetrics struct {
	RelayPublishedTotal *prometheus.CounterVec
	RelayFailedTotal    *prometheus.CounterVec
	RelayGaveUpTotal    *prometheus.CounterVec
	RelayBatchSize      prometheus.Histogram
}

type ReplicaMetrics struct {
	AppliedTotal       *prometheus.CounterVec
	DuplicatesTotal    prometheus.Counter
	ParentMissingTotal prometheus.Counter
	DeadLetterTotal    prometheus.Counter
	ApplyDuration      *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Kafka: KafkaMetrics{
			ProducerAttemptLatencySeconds: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "homesync",
				Subsystem: "kafka",
				Name:      "producer_attempt_latency_seconds",
				Help:      "Latency per single produce attempt.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"topic", "result"}), // ok|error

			ProducerOperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "kafka",
				Name:      "producer_operations_total",
				Help:      "Total produce operations (one call) by result.",
			}, []string{"topic", "result"}), // success|failed|permanent|canceled

			ConsumerMessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "kafka",
				Name:      "consumer_messages_total",
				Help:      "Total consumed Kafka messages by topic and outcome.",
			}, []string{"topic", "outcome"}), // applied|duplicate|redelivered|dead_letter

			ConsumerProcessDuration: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "homesync",
				Subsystem: "kafka",
				Name:      "consumer_process_duration_seconds",
				Help:      "Kafka message processing duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"topic"}),

			ConsumerRebalancesTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "kafka",
				Name:      "consumer_rebalances_total",
				Help:      "Consumer rebalance lifecycle events.",
			}, []string{"event"}),

			ConsumerInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "homesync",
				Subsystem: "kafka",
				Name:      "consumer_inflight_messages",
				Help:      "Messages currently being processed.",
			}, []string{"topic"}),
		},

		API: APIMetrics{
			HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, path and status.",
			}, []string{"method", "path", "status"}),

			HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "homesync",
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			}, []string{"method", "path", "status"}),
		},

		Outbox: OutboxMetrics{
			RelayPublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "outbox",
				Name:      "relay_published_total",
				Help:      "Outbox rows published and marked sent.",
			}, []string{"event_type"}),

			RelayFailedTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "outbox",
				Name:      "relay_failed_total",
				Help:      "Failed publish attempts by retry classification.",
			}, []string{"reason"}),

			RelayGaveUpTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "outbox",
				Name:      "relay_gave_up_total",
				Help:      "Outbox rows that exceeded the retry ceiling.",
			}, []string{"event_type"}),

			RelayBatchSize: f.NewHistogram(prometheus.HistogramOpts{
				Namespace: "homesync",
				Subsystem: "outbox",
				Name:      "relay_batch_size",
				Help:      "Rows reserved per relay poll.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			}),
		},

		Replica: ReplicaMetrics{
			AppliedTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "replica",
				Name:      "applied_total",
				Help:      "Events applied to the local replica.",
			}, []string{"event_type"}),

			DuplicatesTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "replica",
				Name:      "duplicates_total",
				Help:      "Duplicate or stale events discarded by the idempotency check.",
			}),

			ParentMissingTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "replica",
				Name:      "parent_missing_total",
				Help:      "Room events that arrived before their parent house.",
			}),

			DeadLetterTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: "homesync",
				Subsystem: "replica",
				Name:      "dead_letter_total",
				Help:      "Poison messages routed to the DLQ topic.",
			}),

			ApplyDuration: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "homesync",
				Subsystem: "replica",
				Name:      "apply_duration_seconds",
				Help:      "Replica apply transaction duration.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"event_type"}),
		},
	}
}
