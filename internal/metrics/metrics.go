// Package metrics defines Prometheus metrics for the labelling pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Pipeline counter vectors
var (
	CandidatesRetained = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "replay_labeller",
		Name:      "candidates_retained",
		Help:      "Surviving candidate labels attributed to each setup after pruning",
	}, []string{"setup"})

	SolverRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replay_labeller",
		Name:      "solver_runs_total",
		Help:      "Assignment solver invocations by status",
	}, []string{"status"})

	BracketFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replay_labeller",
		Name:      "bracket_fetches_total",
		Help:      "Bracket API fetches by status",
	}, []string{"status"})

	ReplaysParsedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replay_labeller",
		Name:      "replays_parsed_total",
		Help:      "Replay files parsed by outcome",
	}, []string{"outcome"})
)

// Pipeline histogram vectors
var (
	SolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "replay_labeller",
		Name:      "solve_duration_seconds",
		Help:      "Wall time of individual assignment solves",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

// Pipeline gauges
var (
	MatchesLabelled = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "replay_labeller",
		Name:      "matches_labelled",
		Help:      "Matches that received a label in the latest solve",
	})
)

func init() {
	prometheus.MustRegister(
		CandidatesRetained,
		SolverRunsTotal,
		BracketFetchesTotal,
		ReplaysParsedTotal,
		SolveDuration,
		MatchesLabelled,
	)
}

// RecordCandidatesRetained records the surviving candidate count for a setup.
func RecordCandidatesRetained(setup string, count int) {
	CandidatesRetained.WithLabelValues(setup).Set(float64(count))
}

// RecordSolverRun records an assignment solve.
// status should be one of: "success", "failure", "timeout"
func RecordSolverRun(status string) {
	SolverRunsTotal.WithLabelValues(status).Inc()
}

// RecordBracketFetch records a bracket API fetch.
func RecordBracketFetch(status string) {
	BracketFetchesTotal.WithLabelValues(status).Inc()
}

// RecordReplayParsed records one parsed replay file.
// outcome should be one of: "ok", "skipped"
func RecordReplayParsed(outcome string) {
	ReplaysParsedTotal.WithLabelValues(outcome).Inc()
}

// ObserveSolveDuration records the wall time of one solve in seconds.
func ObserveSolveDuration(seconds float64) {
	SolveDuration.Observe(seconds)
}

// SetMatchesLabelled records how many matches the latest solve labelled.
func SetMatchesLabelled(n int) {
	MatchesLabelled.Set(float64(n))
}

// Serve exposes the metrics endpoint on the given port. It blocks, so
// callers run it in a goroutine.
func Serve(port int, path string, logger *logrus.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.WithFields(logrus.Fields{"port": port, "path": path}).Info("Serving metrics")
	return server.ListenAndServe()
}
