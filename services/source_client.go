package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/autobot-tf/reputation-backend/shared"
	"github.com/sirupsen/logrus"
)

// SourceClientConfig holds the connection settings shared by the upstream reputation clients
type SourceClientConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"-"`
	Version string        `json:"version"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultSourceClientConfig returns a config for baseURL with a 30 second timeout
func DefaultSourceClientConfig(baseURL string) *SourceClientConfig {
	return &SourceClientConfig{
		BaseURL: baseURL,
		Version: "dev",
		Timeout: 30 * time.Second,
	}
}

// sourceClient carries what every upstream client needs to issue one request
type sourceClient struct {
	name       string
	config     SourceClientConfig
	httpClient *http.Client
	logger     *logrus.Entry
}

func newSourceClient(name string, cfg *SourceClientConfig, factory *shared.HTTPClientFactory) sourceClient {
	if cfg == nil {
		cfg = DefaultSourceClientConfig("")
	}
	if factory == nil {
		factory = shared.NewHTTPClientFactory(cfg.Timeout)
	}

	return sourceClient{
		name:       name,
		config:     *cfg,
		httpClient: factory.CreateOptimizedHTTPClient(cfg.Timeout),
		logger: logrus.WithFields(logrus.Fields{
			"component": "SourceClient",
			"source":    name,
		}),
	}
}

// endpoint joins path onto the configured base URL and appends query
func (c sourceClient) endpoint(path string, query url.Values) string {
	target := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// fetch issues one request and returns the body of a 2xx answer
func (c sourceClient) fetch(ctx context.Context, method, target string, body io.Reader, operation string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "INVALID_REQUEST",
			fmt.Sprintf("cannot build request for %s", c.name), c.name, operation, false, err)
	}
	shared.SetUpstreamHeaders(request, c.config.Version)

	return shared.DoRequest(c.httpClient, request, c.name, operation)
}

// warn logs a failed query at warn level
func (c sourceClient) warn(err error, steamID, message string) {
	c.logger.WithFields(shared.ErrorFields(err)).WithError(err).WithField("steam_id", steamID).Warn(message)
}
