package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		logsSavedTotal,
		logsDeletedTotal,
		logsExpiredTotal,
	)
}

var (
	logsSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logs_saved_total",
			Help: "Total number of chat logs saved or overwritten.",
		},
	)

	logsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logs_deleted_total",
			Help: "Total number of delete-log requests served.",
		},
	)

	logsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logs_expired_total",
			Help: "Total number of logs removed by the retention worker.",
		},
	)
)

func IncLogsSaved()   { logsSavedTotal.Inc() }
func IncLogsDeleted() { logsDeletedTotal.Inc() }

func AddLogsExpired(n int64) {
	logsExpiredTotal.Add(float64(n))
}
