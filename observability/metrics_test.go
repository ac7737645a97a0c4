package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counts(t *testing.T) {
	req := require.New(t)

	// Given fresh metrics
	m := NewMetrics()

	// When the chat core reports activity
	m.ConnectionJoined()
	m.ConnectionJoined()
	m.ConnectionLeft()
	m.Broadcast(3, 1)
	m.MessagePersisted("eng")
	m.MessagePersisted("eng")
	m.SessionClosed(1011)

	// Then every collector reflects it
	req.Equal(1.0, testutil.ToFloat64(m.connectionsActive))
	req.Equal(1.0, testutil.ToFloat64(m.broadcasts))
	req.Equal(3.0, testutil.ToFloat64(m.framesDelivered))
	req.Equal(1.0, testutil.ToFloat64(m.peerSendFailures))
	req.Equal(2.0, testutil.ToFloat64(m.messagesPersisted.WithLabelValues("eng")))
	req.Equal(1.0, testutil.ToFloat64(m.sessionsClosed.WithLabelValues("1011")))
}

func TestMetrics_Nil_Is_Safe(t *testing.T) {
	req := require.New(t)

	// Given no metrics
	var m *Metrics

	// When every method is called
	req.NotPanics(func() {
		m.ConnectionJoined()
		m.ConnectionLeft()
		m.RoomsActive(2)
		m.Broadcast(1, 0)
		m.MessagePersisted("eng")
		m.SessionClosed(1000)
		m.ProcessStats(1, 1)
	})

	// Then the handler answers 404
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	req.Equal(http.StatusNotFound, rec.Code)
}
