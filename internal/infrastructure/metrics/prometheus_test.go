package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/metrics"
)

func TestRecorder_Counters(t *testing.T) {
	r := metrics.New("inventario")

	r.ObserveCheckout("ok")
	r.ObserveCheckout("ok")
	r.ObserveCheckout("insufficient_stock")
	r.ObserveTransfer("RECEIVED", "ok")
	r.ObserveLockTimeout("ledger.lock")
	r.ObserveLedgerHold()

	n, err := testutil.GatherAndCount(r.Gatherer(), "inventario_checkouts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "una serie por outcome")

	n, err = testutil.GatherAndCount(r.Gatherer(), "inventario_ledger_holds_total", "inventario_lock_timeouts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecorder_Handler(t *testing.T) {
	r := metrics.New("inventario")
	r.ObserveRefund("already_refunded")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `inventario_refunds_total{outcome="already_refunded"} 1`)
}

func TestRecorder_NilHandler(t *testing.T) {
	var r *metrics.Recorder
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 503, rec.Code)
}
