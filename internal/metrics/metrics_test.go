package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	assert.NotNil(t, apiRequestsTotal)
	assert.NotNil(t, cacheEventsTotal)
}

func TestObserversAreSafeAfterInit(t *testing.T) {
	Init()
	ObserveAPIRequest(http.MethodGet, "/records", 200, 5*time.Millisecond)
	ObserveQuotaRejection("BASIC")
	ObserveCacheEvent("hit")
	ObserveHarvestTarget("visited")
	ObserveHarvestUpsert()
	ObserveHarvestDraftDiscarded()
}

func TestHandlerServesExposition(t *testing.T) {
	Init()
	ObserveCacheEvent("miss")

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "catalog_cache_events_total")
}
