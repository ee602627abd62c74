package admin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	propsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kadmin",
		Name:      "props_total",
		Help:      "Admin props resolutions by view and outcome",
	}, []string{"view", "outcome"})

	propsDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kadmin",
		Name:      "props_duration_seconds",
		Help:      "Time spent resolving admin props",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(propsTotal, propsDuration)
}

func observeProps(view View, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if view == "" {
		view = "unknown"
	}
	propsTotal.WithLabelValues(string(view), outcome).Inc()
	propsDuration.Observe(time.Since(start).Seconds())
}
