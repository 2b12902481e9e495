package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chaosq/internal/stats"
)

func TestCollector_ReflectsAggregator(t *testing.T) {
	agg := stats.NewAggregator()
	agg.ConnectionAttempt()
	agg.ConnectionOpened("user-1")
	agg.RequestStarted()
	agg.RequestDone("user-1", 3*time.Millisecond, nil)
	agg.RequestStarted()
	agg.RequestDone("user-1", 5*time.Millisecond, errors.New("status 502"))

	c := NewCollector(agg)
	assert.Equal(t, 10, testutil.CollectAndCount(c))

	expected := `
# HELP chaosq_requests_failed_total Requests that failed, timed out or were aborted.
# TYPE chaosq_requests_failed_total counter
chaosq_requests_failed_total 1
# HELP chaosq_requests_issued_total Requests issued by virtual users.
# TYPE chaosq_requests_issued_total counter
chaosq_requests_issued_total 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"chaosq_requests_issued_total", "chaosq_requests_failed_total"))
}

func TestServe_ExposesMetrics(t *testing.T) {
	agg := stats.NewAggregator()
	agg.ConnectionAttempt()

	s, err := Serve("127.0.0.1:0", agg, zap.NewNop())
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chaosq_connection_attempts_total 1")
}
