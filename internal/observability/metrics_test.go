package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets/all", "GET", 200, 5*time.Millisecond)
	m.RecordRequest("/tickets/all", "GET", 200, 7*time.Millisecond)
	m.RecordError("/tickets/updateStatus", "POST", "FORBIDDEN")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tickets/all|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/tickets/updateStatus|POST|FORBIDDEN"])
	assert.Equal(t, int64(12), snap.RequestMillis["/tickets/all|GET|200"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	assert.Empty(t, m.Snapshot().Requests)
	assert.Empty(t, m.Snapshot().RequestMillis)
}
