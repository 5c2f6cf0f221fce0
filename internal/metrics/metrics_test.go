package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Providers.WithLabelValues(ResultPrepared).Inc()
	m.Providers.WithLabelValues(ResultPrepared).Inc()
	m.Providers.WithLabelValues(ResultSkipped).Inc()
	m.Sessions.Add(5)
	m.Duration.Observe(0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Providers.WithLabelValues(ResultPrepared)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Providers.WithLabelValues(ResultSkipped)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Sessions))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Tokens.Add(42)

	path := filepath.Join(t.TempDir(), "ehrtok.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ehrtok_tokens_total 42")
}
