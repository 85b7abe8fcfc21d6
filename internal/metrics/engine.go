package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edvin/clusterplan/internal/model"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterplan_operations_total",
			Help: "Total number of topology operations by result",
		},
		[]string{"operation", "result"},
	)

	placementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterplan_placements_total",
			Help: "Total number of component instances placed on nodes",
		},
		[]string{"service"},
	)

	snapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterplan_snapshot_writes_total",
			Help: "Total number of cluster snapshot writes by backend and result",
		},
		[]string{"backend", "result"},
	)
)

// ObserveOperation records the outcome of an engine operation. The result
// label is "ok" or the lower-case error kind.
func ObserveOperation(operation string, err error) {
	operationsTotal.WithLabelValues(operation, Result(err)).Inc()
}

// ObservePlacements records component instances placed for a service.
func ObservePlacements(service string, n int) {
	if n > 0 {
		placementsTotal.WithLabelValues(service).Add(float64(n))
	}
}

// ObserveSnapshotWrite records a store write.
func ObserveSnapshotWrite(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	snapshotWritesTotal.WithLabelValues(backend, result).Inc()
}

// Result maps an error to a bounded label value.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	var me *model.Error
	if errors.As(err, &me) && me.Kind != nil {
		return me.Kind.Error()
	}
	return "error"
}
