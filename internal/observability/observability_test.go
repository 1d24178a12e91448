package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/credit-ledger/internal/config"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/generate", "POST", 200, 15*time.Millisecond)
	m.RecordError("/generate", "POST", "INSUFFICIENT_CREDITS")
	m.RecordCreditSpent()
	m.RecordCreditSpent()
	m.RecordVoucher("redeemed")
	m.RecordGeneration("success")
	m.RecordAccountEvent("created")

	require.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("/generate", "POST", "200")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.errorCount.WithLabelValues("/generate", "POST", "INSUFFICIENT_CREDITS")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.creditsSpent))
	require.Equal(t, float64(1), testutil.ToFloat64(m.vouchers.WithLabelValues("redeemed")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.generations.WithLabelValues("success")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.accounts.WithLabelValues("created")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordCreditSpent()
	m.RecordVoucher("issued")
	m.RecordGeneration("failure")
	m.RecordAccountEvent("deleted")
}

func TestNewLogger_UnknownLevelFallsBack(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "verbose"}, config.AppConfig{Name: "credit-ledger", Env: "test"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.False(t, logger.Core().Enabled(-1))
}

func TestNewLogger_DebugLevel(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "DEBUG"}, config.AppConfig{Env: "development"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(-1))
}
