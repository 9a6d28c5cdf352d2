// Package metrics holds the pipeline's prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every salesprobe collector. The CLI writes it out in the
// node_exporter textfile format at the end of a run.
var Registry = prometheus.NewRegistry()

var (
	// Rows that passed the type normalizer
	RowsNormalized = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "salesprobe_rows_normalized_total",
		Help: "Total number of input rows normalized",
	})

	// Input files rejected by the type normalizer
	InputsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salesprobe_inputs_rejected_total",
		Help: "Total number of inputs rejected, by error kind",
	}, []string{"kind"})

	// Rows handed to the persistence sink, by relation and outcome
	SinkRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salesprobe_sink_rows_total",
		Help: "Rows processed by the SQL loader",
	}, []string{"relation", "outcome"})

	// Duration of each pipeline stage
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "salesprobe_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
)

// Sink row outcomes.
const (
	OutcomeInserted     = "inserted"
	OutcomeDeduplicated = "deduplicated"
	OutcomeFailed       = "failed"
)

func init() {
	Registry.MustRegister(
		RowsNormalized,
		InputsRejected,
		SinkRows,
		StageDuration,
	)
}

// ObserveStage records how long a stage took.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile writes the registry to path in the textfile collector format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
