package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NotPanics(t, func() {
		MustRegister(reg)
		MustRegister(reg)
	})

	CustomersTotal.WithLabelValues("seed").Inc()
	n, err := testutil.GatherAndCount(reg, "eventlog_customers_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}
