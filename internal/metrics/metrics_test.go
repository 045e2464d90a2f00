package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RateLimitDecisions.WithLabelValues("anonymous", "allowed").Inc()
	m.Redirects.WithLabelValues("found").Add(2)
	m.LinksCreated.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues("anonymous", "allowed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Redirects.WithLabelValues("found")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "shortlink_links_created_total")
	assert.Contains(t, names, "shortlink_redirects_total")
}

func TestNew_NilRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil).AllocationRetries.Inc()
		New(nil).AllocationRetries.Inc()
	})
}
