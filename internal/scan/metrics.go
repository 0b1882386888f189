package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "geoattend",
	Name:      "scan_outcomes_total",
	Help:      "Terminal scan attempt outcomes.",
}, []string{"outcome"})
