package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "outing",
		Name:      "requests_submitted_total",
		Help:      "Total number of outing requests accepted by /apply.",
	})

	decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outing",
		Name:      "decisions_total",
		Help:      "Total number of processed approver decisions by status and whether the record existed.",
	}, []string{"status", "found"})

	storeCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outing",
		Name:      "store_calls_total",
		Help:      "Total number of row store calls broken down by operation and result.",
	}, []string{"op", "result"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outing",
		Name:      "notifications_total",
		Help:      "Total number of push messages broken down by kind and result.",
	}, []string{"kind", "result"})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordSubmission() {
	submissions.Inc()
}

func RecordDecision(status string, found bool) {
	f := "false"
	if found {
		f = "true"
	}
	decisions.With(prometheus.Labels{"status": status, "found": f}).Inc()
}

func RecordStoreCall(op string, err error) {
	storeCalls.With(prometheus.Labels{"op": op, "result": result(err)}).Inc()
}

func RecordNotification(kind string, err error) {
	notifications.With(prometheus.Labels{"kind": kind, "result": result(err)}).Inc()
}
