package infra

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics agrupa as métricas Prometheus do gate e do transporte.
//
// Um *Metrics nil é válido: todos os métodos viram no-op.
//
// Métricas:
//   - crpt_gate_admitted_total: admissões concedidas
//   - crpt_gate_waited_total: chamadas que precisaram esperar a próxima janela
//   - crpt_gate_cancelled_total: esperas abandonadas (ctx encerrado ou gate desligado)
//   - crpt_gate_resets_total: janelas reiniciadas (só WindowGate)
//   - crpt_gate_waiting: chamadas bloqueadas neste instante
//   - crpt_gate_wait_duration_seconds: tempo até a admissão
//   - crpt_transport_requests_total: respostas do registro por status
type Metrics struct {
	admitted     prometheus.Counter
	waited       prometheus.Counter
	cancelled    prometheus.Counter
	resets       prometheus.Counter
	waiting      prometheus.Gauge
	waitDuration prometheus.Histogram
	requests     *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crpt", Subsystem: "gate",
			Name: "admitted_total", Help: "Total number of admissions granted by the rate gate",
		}),
		waited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crpt", Subsystem: "gate",
			Name: "waited_total", Help: "Total number of callers that blocked waiting for the next window",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crpt", Subsystem: "gate",
			Name: "cancelled_total", Help: "Total number of waits abandoned before admission",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crpt", Subsystem: "gate",
			Name: "resets_total", Help: "Total number of window resets",
		}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crpt", Subsystem: "gate",
			Name: "waiting", Help: "Callers currently blocked in the rate gate",
		}),
		waitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crpt", Subsystem: "gate",
			Name:    "wait_duration_seconds",
			Help:    "Time spent in the rate gate before admission",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crpt", Subsystem: "transport",
			Name: "requests_total", Help: "Registry responses by HTTP status code",
		}, []string{"code"}),
	}

	registry.MustRegister(
		m.admitted,
		m.waited,
		m.cancelled,
		m.resets,
		m.waiting,
		m.waitDuration,
		m.requests,
	)
	return m
}

func (m *Metrics) admit(waited time.Duration) {
	if m == nil {
		return
	}
	m.admitted.Inc()
	m.waitDuration.Observe(waited.Seconds())
}

func (m *Metrics) blocked() {
	if m == nil {
		return
	}
	m.waited.Inc()
	m.waiting.Inc()
}

func (m *Metrics) unblocked() {
	if m == nil {
		return
	}
	m.waiting.Dec()
}

func (m *Metrics) cancel() {
	if m == nil {
		return
	}
	m.cancelled.Inc()
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

// ObserveStatus conta uma resposta do registro; code=0 representa falha de I/O.
func (m *Metrics) ObserveStatus(code int) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(label).Inc()
}
