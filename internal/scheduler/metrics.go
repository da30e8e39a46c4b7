package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// jobRunsTotal counts periodic job runs by job and result
	jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_scheduler_job_runs_total",
		Help: "Periodic job runs by job and result",
	}, []string{"job", "result"})

	// jobDuration tracks periodic job latency
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadflow_scheduler_job_duration_seconds",
		Help:    "Periodic job duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"job"})

	// sequenceStepsTotal counts sequence step outcomes by program
	sequenceStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_sequence_steps_total",
		Help: "Sequence steps by program and result (sent, failed)",
	}, []string{"program", "result"})

	// overdueLeads is the size of the last escalation scan
	overdueLeads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadflow_leads_overdue",
		Help: "Open leads past their SLA deadline at the last escalation scan",
	})

	// storeDegraded is 1 while the leads module runs on the in-memory store
	storeDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadflow_store_degraded",
		Help: "1 when the lead store fell back to process-local memory",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
