package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suPer8Hu/profile-assistant/internal/chat"
	"github.com/suPer8Hu/profile-assistant/internal/intent"
)

// Metrics groups the Prometheus instruments of the chat service. It implements
// chat.Observer.
type Metrics struct {
	registry *prometheus.Registry

	MessagesStored  *prometheus.CounterVec
	IntentsMatched  *prometheus.CounterVec
	RevealDuration  *prometheus.HistogramVec
	HistoryClears   prometheus.Counter
	MessagesCleared prometheus.Counter
	LiveControllers prometheus.Gauge
}

var _ chat.Observer = (*Metrics)(nil)

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		MessagesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_stored_total",
			Help:      "Chat messages written to the conversation store by sender.",
		}, []string{"sender"}),
		IntentsMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_matched_total",
			Help:      "Replies by matched topic and selected language.",
		}, []string{"topic", "language"}),
		RevealDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reveal_duration_seconds",
			Help:      "Wall time of reply reveals, by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"outcome"}),
		HistoryClears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_clears_total",
			Help:      "Session clears requested by visitors.",
		}),
		MessagesCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_cleared_total",
			Help:      "Messages deleted by session clears.",
		}),
		LiveControllers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_controllers",
			Help:      "Conversation controllers currently held in memory.",
		}),
	}
	reg.MustRegister(m.MessagesStored, m.IntentsMatched, m.RevealDuration,
		m.HistoryClears, m.MessagesCleared, m.LiveControllers)
	return m
}

func (m *Metrics) MessageStored(sender chat.Sender) {
	m.MessagesStored.WithLabelValues(string(sender)).Inc()
}

func (m *Metrics) IntentMatched(topic intent.Topic, lang intent.Language) {
	m.IntentsMatched.WithLabelValues(string(topic), string(lang)).Inc()
}

func (m *Metrics) RevealFinished(d time.Duration, completed bool) {
	outcome := "completed"
	if !completed {
		outcome = "interrupted"
	}
	m.RevealDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) HistoryCleared(deleted int64) {
	m.HistoryClears.Inc()
	if deleted > 0 {
		m.MessagesCleared.Add(float64(deleted))
	}
}

func (m *Metrics) ControllersLive(n int) {
	m.LiveControllers.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
