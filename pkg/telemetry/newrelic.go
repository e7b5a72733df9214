package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

// Custom event types recorded by the bridge.
const (
	EventSlowRequest  = "WopiSlowRequest"
	EventServiceError = "WopiServiceError"
)

// NewRelicClient wraps the New Relic agent. A client built without a
// license key is disabled and every method is a no-op.
type NewRelicClient struct {
	app         *newrelic.Application
	logger      logging.Logger
	serviceName string
	enabled     bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	LicenseKey  string
	AppName     string
	ServiceName string
	Version     string
}

// NewNewRelicClient creates a new New Relic client.
func NewNewRelicClient(cfg NewRelicConfig, logger logging.Logger) (*NewRelicClient, error) {
	if cfg.LicenseKey == "" {
		logger.Info("New Relic disabled, license key not provided")
		return &NewRelicClient{
			logger:      logger,
			serviceName: cfg.ServiceName,
		}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		func(c *newrelic.Config) {
			c.Labels = map[string]string{"version": cfg.Version}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	logger.Info("New Relic client initialized",
		logging.NewField("app_name", cfg.AppName),
		logging.NewField("service", cfg.ServiceName),
	)

	return &NewRelicClient{
		app:         app,
		logger:      logger,
		serviceName: cfg.ServiceName,
		enabled:     true,
	}, nil
}

// Enabled reports whether events are forwarded to New Relic.
func (n *NewRelicClient) Enabled() bool {
	return n.enabled && n.app != nil
}

// TransactionMiddleware opens a web transaction per request, named after the
// matched route, and stores it on the request context.
func (n *NewRelicClient) TransactionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !n.Enabled() {
			c.Next()
			return
		}

		name := c.FullPath()
		if name == "" {
			name = "NotFound"
		}
		txn := n.app.StartTransaction(c.Request.Method + " " + name)
		defer txn.End()

		txn.SetWebRequestHTTP(c.Request)
		txn.AddAttribute("service", n.serviceName)
		c.Request = c.Request.WithContext(newrelic.NewContext(c.Request.Context(), txn))

		c.Next()

		txn.SetWebResponse(nil).WriteHeader(c.Writer.Status())
	}
}

func (n *NewRelicClient) annotate(ctx context.Context, attributes map[string]interface{}, err error) {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return
	}
	for k, v := range attributes {
		txn.AddAttribute(k, v)
	}
	if err != nil {
		txn.NoticeError(err)
	}
}

// RecordSlowRequest records a slow request event.
func (n *NewRelicClient) RecordSlowRequest(ctx context.Context, route string, duration time.Duration, traceID, requestID string) {
	if !n.Enabled() {
		return
	}

	attributes := map[string]interface{}{
		"service":     n.serviceName,
		"route":       route,
		"duration_ms": duration.Milliseconds(),
		"trace_id":    traceID,
		"request_id":  requestID,
	}
	n.app.RecordCustomEvent(EventSlowRequest, attributes)
	n.annotate(ctx, map[string]interface{}{"slow_request": true}, nil)
}

// RecordError records a server error event.
func (n *NewRelicClient) RecordError(ctx context.Context, route, errorMsg string, statusCode int, traceID, requestID string) {
	if !n.Enabled() {
		return
	}

	attributes := map[string]interface{}{
		"service":     n.serviceName,
		"route":       route,
		"error":       errorMsg,
		"status_code": statusCode,
		"trace_id":    traceID,
		"request_id":  requestID,
	}
	n.app.RecordCustomEvent(EventServiceError, attributes)
	n.annotate(ctx, map[string]interface{}{"trace_id": traceID}, fmt.Errorf("HTTP %d: %s", statusCode, errorMsg))
}

// Shutdown flushes pending data and stops the agent.
func (n *NewRelicClient) Shutdown(timeout time.Duration) {
	if n.Enabled() {
		n.app.Shutdown(timeout)
	}
}
