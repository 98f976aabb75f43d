package ports

// Metrics recibe los resultados de las operaciones del núcleo.
// outcome es domain.Code(err).
type Metrics interface {
	ObserveCheckout(outcome string)
	ObserveRefund(outcome string)
	ObserveTransfer(target, outcome string)
	ObserveAdjustment(outcome string)
	ObserveLockTimeout(operation string)
	ObserveLedgerHold()
}

// NopMetrics descarta todas las observaciones.
type NopMetrics struct{}

func (NopMetrics) ObserveCheckout(string)         {}
func (NopMetrics) ObserveRefund(string)           {}
func (NopMetrics) ObserveTransfer(string, string) {}
func (NopMetrics) ObserveAdjustment(string)       {}
func (NopMetrics) ObserveLockTimeout(string)      {}
func (NopMetrics) ObserveLedgerHold()             {}
