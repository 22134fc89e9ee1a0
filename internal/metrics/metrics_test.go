package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveQuery("select", nil, 5*time.Millisecond)
	m.ObserveQuery("select", nil, 2*time.Millisecond)
	m.ObserveQuery("insert", errors.New("boom"), time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(m.queries.WithLabelValues("select", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.queries.WithLabelValues("insert", "error")))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveQuery("select", nil, time.Millisecond)
	})
}
