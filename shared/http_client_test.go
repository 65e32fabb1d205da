package shared

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequest(t *testing.T) {
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"ok":true}`))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	factory := NewHTTPClientFactory(5 * time.Second)
	defer factory.CleanupAllClients()
	client := factory.CreateOptimizedHTTPClient(0)
	assert.Same(t, client, factory.CreateOptimizedHTTPClient(5*time.Second))

	t.Run("returns the body of a 2xx answer", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, server.URL+"/ok", nil)
		require.NoError(t, err)
		SetUpstreamHeaders(request, "1.2.3")

		body, err := DoRequest(client, request, "test", "Get")
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
		assert.Equal(t, "autobot.tf@1.2.3", userAgent.Load())
	})

	t.Run("5xx is a retryable upstream error", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, server.URL+"/busy", nil)
		require.NoError(t, err)

		_, err = DoRequest(client, request, "test", "Get")
		var serviceErr *ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, ErrorCategoryUpstream, serviceErr.Category)
		assert.Equal(t, "HTTP_503", serviceErr.Code)
		assert.True(t, serviceErr.Retryable)
		assert.False(t, IsTimeout(err))
	})

	t.Run("4xx is not retryable", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, server.URL+"/missing", nil)
		require.NoError(t, err)

		_, err = DoRequest(client, request, "test", "Get")
		var serviceErr *ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.False(t, serviceErr.Retryable)
	})
}

func TestDoRequestTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewHTTPClientFactory(50 * time.Millisecond).CreateOptimizedHTTPClient(0)
	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = DoRequest(client, request, "test", "Get")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, ErrorCategoryTimeout, serviceErr.Category)
}

func TestDecodeJSONReportsBadData(t *testing.T) {
	var out map[string]interface{}
	err := DecodeJSON([]byte("<html>"), &out, "test", "Decode")

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, ErrorCategoryBadData, serviceErr.Category)
	assert.False(t, serviceErr.Retryable)
}

func TestRetryPolicy(t *testing.T) {
	t.Run("timeouts are retried up to the attempt limit", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 2, Timeout: 20 * time.Millisecond}

		attempts := 0
		err := policy.Execute(context.Background(), "slow", func(ctx context.Context) error {
			attempts++
			<-ctx.Done()
			return ctx.Err()
		})

		require.Error(t, err)
		assert.True(t, IsTimeout(err))
		assert.Equal(t, 2, attempts)
	})

	t.Run("other failures are not retried", func(t *testing.T) {
		policy := DefaultRetryPolicy()
		failure := errors.New("connection refused")

		attempts := 0
		err := policy.Execute(context.Background(), "refused", func(ctx context.Context) error {
			attempts++
			return failure
		})

		assert.ErrorIs(t, err, failure)
		assert.Equal(t, 1, attempts)
	})

	t.Run("a retry that succeeds ends the loop", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 2, Timeout: time.Second}

		attempts := 0
		err := policy.Execute(context.Background(), "flaky", func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				return context.DeadlineExceeded
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("each attempt carries its own deadline", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 1, Timeout: time.Minute}

		err := policy.Execute(context.Background(), "deadline", func(ctx context.Context) error {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
			return nil
		})
		assert.NoError(t, err)
	})
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(errors.New("boom")))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(NewServiceError(ErrorCategoryTimeout, "UPSTREAM_TIMEOUT", "slow", "test", "Get", true, nil)))
}
