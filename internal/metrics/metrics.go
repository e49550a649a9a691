package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_commands_total",
			Help: "Commands handled, by route",
		},
		[]string{"route"}, // route: local|model|farewell|empty
	)

	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_tool_calls_total",
			Help: "Tool invocations, by tool and outcome",
		},
		[]string{"tool", "status"}, // status: ok|failure|unknown
	)

	ModelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_model_requests_total",
			Help: "Model requests, by provider and outcome",
		},
		[]string{"provider", "model", "status"},
	)

	ModelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luna_model_latency_seconds",
			Help:    "Model request latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider", "model"},
	)

	ListenOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_listen_total",
			Help: "Listen attempts, by state and outcome",
		},
		[]string{"state", "outcome"}, // state: idle|active
	)
)

func init() {
	prometheus.MustRegister(Commands, ToolCalls, ModelRequests, ModelLatency, ListenOutcomes)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveModel(provider, model string, d time.Duration, err error) {
	ModelRequests.WithLabelValues(provider, model, status(err)).Inc()
	ModelLatency.WithLabelValues(provider, model).Observe(d.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
