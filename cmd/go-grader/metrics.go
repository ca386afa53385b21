package main

import (
	"github.com/criyle/go-grader/judger"
	"github.com/criyle/go-grader/section"
	"github.com/criyle/go-grader/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "grader"
)

var (
	// 1ms -> 10s
	timeBuckets = []float64{
		0.001, 0.002, 0.005, 0.008, 0.010, 0.025, 0.050, 0.075, 0.1, 0.2,
		0.4, 0.6, 0.8, 1.0, 1.5, 2, 5, 10,
	}

	caseCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "case_total",
		Help:      "Number of judged cases by status",
	}, []string{"function", "status"})

	callTimeHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "call_time_seconds",
		Help:      "Histogram for the running time of submission calls",
		Buckets:   timeBuckets,
	}, []string{"status"})

	submissionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "submission_total",
		Help:      "Number of loaded submissions by identity state",
	}, []string{"section", "identity"})

	scoreRatioHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "score_ratio",
		Help:      "Histogram for the total score of resolved submissions over points possible",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"section"})

	killedWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "killed_workers",
		Help:      "Number of worker processes killed because a load or call exceeded the time limit",
	})
)

func init() {
	prometheus.MustRegister(caseCount, callTimeHist)
	prometheus.MustRegister(submissionCount, scoreRatioHist)
	prometheus.MustRegister(killedWorkers)
}

var _ judger.Observer = metricsObserver{}

type metricsObserver struct{}

func (metricsObserver) Case(spec *types.FunctionSpec, c *types.CaseResult) {
	status := c.Status.String()
	caseCount.WithLabelValues(spec.Name, status).Inc()
	if c.Time > 0 {
		callTimeHist.WithLabelValues(status).Observe(c.Time.Seconds())
	}
}

func sectionObserve(name string, s *section.Section, possible float64) {
	for _, sub := range s.Submissions {
		submissionCount.WithLabelValues(name, sub.Identity.State.String()).Inc()
		if sub.Identity.State == types.IdentityResolved && possible > 0 {
			scoreRatioHist.WithLabelValues(name).Observe(sub.TotalScore() / possible)
		}
	}
}
