package prometheus

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.IntentClassified(domain.IntentGreeting, "rules")
	r.IntentClassified(domain.IntentGreeting, "rules")
	r.IntentClassified(domain.IntentProcessRelated, "model")
	r.RerankFallback()
	r.GatingDegraded("local_view")
	r.BatchQuery("ok")
	r.BatchQuery("error")
	r.BatchQuery("ok")

	assert.InDelta(t, 2, testutil.ToFloat64(r.intentClassified.WithLabelValues("GREETING", "rules")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.intentClassified.WithLabelValues("PROCESS_RELATED", "model")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.rerankFallbacks), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.gatingDegraded.WithLabelValues("local_view")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.batchQueries.WithLabelValues("ok")), 0)
}

func TestRecorder_RetrievalDuration(t *testing.T) {
	r := NewRecorder()

	r.RetrievalDuration(domain.SourceLexical, 10*time.Millisecond, nil)
	r.RetrievalDuration(domain.SourceVector, 20*time.Millisecond, errors.New("down"))

	assert.Equal(t, 2, testutil.CollectAndCount(r.retrievalDuration))
}

func TestRecorder_MiddlewareAndHandler(t *testing.T) {
	r := NewRecorder()
	router := chi.NewRouter()
	router.Use(r.Middleware)
	router.Get("/api/policy/whitelists/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Handle("/metrics", r.Handler())

	srv := httptest.NewServer(router)
	defer srv.Close()

	for _, id := range []string{"a", "b"} {
		resp, err := http.Get(srv.URL + "/api/policy/whitelists/" + id)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.InDelta(t, 2, testutil.ToFloat64(
		r.httpRequestsTotal.WithLabelValues("GET", "/api/policy/whitelists/{id}", "404")), 0)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "procrag_http_requests_total")
}
