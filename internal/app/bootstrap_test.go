package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"retitle/internal/app"
	"retitle/internal/config"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := app.Retry(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("not ready")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	err := app.Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		calls++
		return errors.New("permanent error")
	})
	assert.EqualError(t, err, "permanent error")
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := app.Retry(ctx, 10, time.Hour, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCreateTopics(t *testing.T) {
	var mu sync.Mutex
	var created []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/topic/create", r.URL.Path)
		mu.Lock()
		created = append(created, r.URL.Query().Get("topic"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	app.CreateTopics(context.Background(), strings.TrimPrefix(server.URL, "http://"), config.AllTopics)

	assert.Equal(t, config.AllTopics, created)
}

func TestBootstrap_MemoryLocal(t *testing.T) {
	cfg := &config.Config{StateBackend: config.StateBackendMemory, BusBackend: config.BusBackendLocal}
	deps, err := app.Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.Redis)
	assert.Nil(t, deps.NSQProducer)
	deps.Close()
}

func TestBootstrap_DBDown(t *testing.T) {
	cfg := &config.Config{
		StateBackend:               config.StateBackendPostgres,
		BusBackend:                 config.BusBackendLocal,
		DBHost:                     "localhost",
		DBPort:                     54322,
		DBUser:                     "test",
		DBPass:                     "test",
		DBName:                     "test",
		BootstrapRetryAttempts:     1,
		BootstrapRetryDelaySeconds: 0,
	}

	start := time.Now()
	deps, err := app.Bootstrap(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to ping db")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBootstrap_RedisDown(t *testing.T) {
	cfg := &config.Config{
		StateBackend:           config.StateBackendRedis,
		BusBackend:             config.BusBackendLocal,
		RedisAddr:              "localhost:63999",
		BootstrapRetryAttempts: 1,
	}

	deps, err := app.Bootstrap(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to ping redis")
}
