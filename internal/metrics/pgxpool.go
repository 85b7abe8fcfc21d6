package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes the snapshot store connection pool as Prometheus gauges.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "clusterplan_store_pool_acquired_conns",
			Help: "Number of currently acquired snapshot store connections",
		}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "clusterplan_store_pool_total_conns",
			Help: "Total number of snapshot store connections",
		}, func() float64 {
			return float64(pool.Stat().TotalConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "clusterplan_store_pool_idle_conns",
			Help: "Number of idle snapshot store connections",
		}, func() float64 {
			return float64(pool.Stat().IdleConns())
		}),
	)
}
