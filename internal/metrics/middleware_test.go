package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeModelLabel_KeepsRepoPath(t *testing.T) {
	got := sanitizeModelLabel("sentence-transformers/all-MiniLM-L6-v2")
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", got)
}

func TestSanitizeModelLabel_ReplacesInvalidChars(t *testing.T) {
	got := sanitizeModelLabel("all-minilm\n\t🚨")
	assert.False(t, strings.ContainsAny(got, "\n\t"))
	assert.NotEqual(t, "unknown", got)
}

func TestSanitizeModelLabel_CapsLength(t *testing.T) {
	got := sanitizeModelLabel(strings.Repeat("a", maxModelLabelLen+50))
	assert.Len(t, got, maxModelLabelLen)
}

func TestSanitizeModelLabel_EmptyFallback(t *testing.T) {
	assert.Equal(t, "unknown", sanitizeModelLabel("   "))
}

func TestMiddleware_RecordsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /embed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	handler := Middleware(mux)

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST /embed", "POST", "400"))

	req := httptest.NewRequest(http.MethodPost, "/embed", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST /embed", "POST", "400"))
	assert.Equal(t, before+1, after)
}

func TestMiddleware_DefaultStatusOK(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("unmatched", "GET", "200"))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("unmatched", "GET", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordCache(t *testing.T) {
	hitsBefore := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	missesBefore := testutil.ToFloat64(CacheLookups.WithLabelValues("miss"))

	RecordCache(3, 2)

	assert.Equal(t, hitsBefore+3, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, missesBefore+2, testutil.ToFloat64(CacheLookups.WithLabelValues("miss")))
}

func TestRecordCache_Accumulates(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("miss"))

	RecordCache(3, 0)
	RecordCache(1, 2)

	assert.Equal(t, hits+4, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(CacheLookups.WithLabelValues("miss")))
}
