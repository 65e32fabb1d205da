package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// maxResponseBytes caps upstream bodies; the untrusted list is the largest payload at a few MB
const maxResponseBytes = 32 << 20

// HTTPClientFactory creates optimized HTTP clients with standardized configuration
type HTTPClientFactory struct {
	defaultTimeout time.Duration
	mutex          sync.RWMutex
	clients        map[string]*http.Client
}

// NewHTTPClientFactory creates a new HTTP client factory
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	return &HTTPClientFactory{
		defaultTimeout: defaultTimeout,
		clients:        make(map[string]*http.Client),
	}
}

// CreateOptimizedHTTPClient creates an HTTP client with connection pooling and optimized settings.
// Clients are cached per timeout so every upstream with the same timeout shares one pool.
func (f *HTTPClientFactory) CreateOptimizedHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	clientKey := fmt.Sprintf("timeout_%d", timeout.Milliseconds())

	f.mutex.RLock()
	if client, exists := f.clients[clientKey]; exists {
		f.mutex.RUnlock()
		return client
	}
	f.mutex.RUnlock()

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if client, exists := f.clients[clientKey]; exists {
		return client
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	f.clients[clientKey] = client

	logrus.WithFields(logrus.Fields{
		"component":  "HTTPClientFactory",
		"timeout":    timeout,
		"client_key": clientKey,
	}).Debug("Created new optimized HTTP client")

	return client
}

// CleanupHTTPClient properly closes and cleans up HTTP client resources
func (f *HTTPClientFactory) CleanupHTTPClient(client *http.Client) {
	if client != nil && client.Transport != nil {
		if transport, ok := client.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
}

// CleanupAllClients cleans up all cached HTTP clients
func (f *HTTPClientFactory) CleanupAllClients() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for key, client := range f.clients {
		f.CleanupHTTPClient(client)
		delete(f.clients, key)
	}

	logrus.WithField("component", "HTTPClientFactory").Debug("Cleaned up all cached HTTP clients")
}

// SetUpstreamHeaders identifies this service to upstream APIs
func SetUpstreamHeaders(request *http.Request, version string) {
	request.Header.Set("User-Agent", "autobot.tf@"+version)
	request.Header.Set("Accept", "application/json")
}

// DoRequest executes request and returns the response body of a 2xx answer.
// Transport failures, non-2xx statuses and unreadable bodies come back as *ServiceError.
func DoRequest(client *http.Client, request *http.Request, serviceName, operation string) ([]byte, error) {
	response, err := client.Do(request)
	if err != nil {
		return nil, ClassifyTransportError(err, serviceName, operation)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 64<<10))
		retryable := response.StatusCode >= 500 || response.StatusCode == http.StatusTooManyRequests
		return nil, NewServiceError(
			ErrorCategoryUpstream,
			fmt.Sprintf("HTTP_%d", response.StatusCode),
			fmt.Sprintf("upstream answered %d %s", response.StatusCode, http.StatusText(response.StatusCode)),
			serviceName,
			operation,
			retryable,
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, ClassifyTransportError(err, serviceName, operation)
	}

	return body, nil
}

// DecodeJSON unmarshals an upstream body, reporting malformed payloads as bad data
func DecodeJSON(body []byte, out interface{}, serviceName, operation string) error {
	if err := json.Unmarshal(body, out); err != nil {
		return NewServiceError(ErrorCategoryBadData, "INVALID_PAYLOAD", "upstream returned malformed JSON", serviceName, operation, false, err)
	}
	return nil
}

// RetryPolicy bounds how often and how long an upstream call may be attempted.
// Only transport timeouts are retried; every other failure is returned as-is.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration
}

// DefaultRetryPolicy allows one retry after a timeout, each attempt capped at 60 seconds
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Timeout:     60 * time.Second,
	}
}

// Execute runs fn under the policy. Each attempt gets its own timeout-bound context.
func (p RetryPolicy) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	logger := logrus.WithFields(logrus.Fields{
		"component": "RetryPolicy",
		"operation": operation,
	})

	attempt := 0
	op := func() error {
		attempt++

		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		if !IsTimeout(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 250 * time.Millisecond
	expBackoff.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(attempts-1)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		logger.WithFields(logrus.Fields{
			"attempt":          attempt,
			"backoff_duration": wait,
		}).WithError(err).Debug("Retrying after timeout")
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"total_attempts": attempt,
		}).WithError(err).Debug("Operation failed under retry policy")
	}

	return err
}
