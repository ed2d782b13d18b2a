package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/marmos91/dittocloud/pkg/schedule"
	"github.com/marmos91/dittocloud/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newRemoteMetrics(reg)

	m.ObserveCall("GetChildren", 20*time.Millisecond, nil)
	m.ObserveCall("GetChildren", 30*time.Millisecond, nil)
	m.ObserveCall("MoveItem", time.Millisecond, remote.NewError(remote.ErrTargetExists, "taken"))
	m.ObserveCall("GetItem", time.Millisecond, errors.New("socket closed"))
	m.ObserveThrottle(5 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("GetChildren", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("MoveItem", "error", remote.ErrTargetExists.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("GetItem", "error", "unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.throttleDelay))
}

func TestCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newCacheMetrics(reg)

	m.ObserveLookup(cache.KindPath, true)
	m.ObserveLookup(cache.KindPath, false)
	m.ObserveLookup(cache.KindPath, false)
	m.ObserveListing(3, 2500)
	m.RecordSize(42, 7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues(cache.KindPath, "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues(cache.KindPath, "miss")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.cachedItems))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.cachedListings))
}

func TestTransferMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newTransferMetrics(reg)

	m.ObserveFile(schedule.Upload, transfer.Transfer, 1000, time.Second, nil)
	m.ObserveFile(schedule.Upload, transfer.Transfer, 500, time.Second, errors.New("rejected"))
	m.ObserveFile(schedule.Upload, transfer.Skip, 0, time.Millisecond, nil)
	m.ObserveScheduleWait(schedule.Download, 90*time.Second)

	assert.Equal(t, 1000.0, testutil.ToFloat64(m.bytesTotal.WithLabelValues(schedule.Upload)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesTotal.WithLabelValues(schedule.Upload, "transfer", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesTotal.WithLabelValues(schedule.Upload, "skip", "success")))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.scheduleWait.WithLabelValues(schedule.Download)))
}

func TestConstructorsDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("registry initialised by another test")
	}
	assert.Nil(t, NewRemoteMetrics())
	assert.Nil(t, NewCacheMetrics())
	assert.Nil(t, NewTransferMetrics())
}

func TestServerHandlerDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("registry initialised by another test")
	}
	rec := httptest.NewRecorder()
	NewServer(ServerConfig{Port: 0}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerServesRegistry(t *testing.T) {
	InitRegistry()
	c := NewCacheMetrics()
	require.NotNil(t, c)

	// A second runtime in the same process reuses the registered collectors.
	assert.Same(t, c, NewCacheMetrics())
	require.NotPanics(t, func() {
		NewRemoteMetrics()
		NewRemoteMetrics()
		NewTransferMetrics()
		NewTransferMetrics()
	})

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(ServerConfig{Port: 0})
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	addr, err := srv.Addr(ctx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dittocloud_cache_items")
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	assert.NoError(t, <-done)
}
