package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
)

var _ ports.Metrics = (*Recorder)(nil)

// Recorder implementa ports.Metrics con contadores Prometheus en un registro propio.
type Recorder struct {
	registry     *prometheus.Registry
	handler      http.Handler
	checkouts    *prometheus.CounterVec
	refunds      *prometheus.CounterVec
	transfers    *prometheus.CounterVec
	adjustments  *prometheus.CounterVec
	lockTimeouts *prometheus.CounterVec
	ledgerHolds  prometheus.Counter
}

// New registra los contadores del núcleo. namespace prefija cada métrica (ej. "inventario").
func New(namespace string) *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Ventas intentadas por resultado.",
		}, []string{"outcome"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Reembolsos intentados por resultado.",
		}, []string{"outcome"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_transitions_total",
			Help:      "Transiciones de traslado por estado destino y resultado.",
		}, []string{"target", "outcome"}),
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_adjustments_total",
			Help:      "Ajustes de stock por resultado.",
		}, []string{"outcome"}),
		lockTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_timeouts_total",
			Help:      "Esperas de bloqueo agotadas por operación.",
		}, []string{"operation"}),
		ledgerHolds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_holds_total",
			Help:      "Grupos suspendidos por inconsistencia del libro.",
		}),
	}
	registry.MustRegister(r.checkouts, r.refunds, r.transfers, r.adjustments, r.lockTimeouts, r.ledgerHolds)
	r.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return r
}

// Handler expone el registro para un endpoint /metrics externo.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Registerer permite registrar colectores adicionales en el mismo registro.
func (r *Recorder) Registerer() prometheus.Registerer { return r.registry }

// Gatherer lectura del registro (conciliación y tests).
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

func (r *Recorder) ObserveCheckout(outcome string) {
	r.checkouts.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveRefund(outcome string) {
	r.refunds.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveTransfer(target, outcome string) {
	r.transfers.WithLabelValues(target, outcome).Inc()
}

func (r *Recorder) ObserveAdjustment(outcome string) {
	r.adjustments.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveLockTimeout(operation string) {
	r.lockTimeouts.WithLabelValues(operation).Inc()
}

func (r *Recorder) ObserveLedgerHold() {
	r.ledgerHolds.Inc()
}
