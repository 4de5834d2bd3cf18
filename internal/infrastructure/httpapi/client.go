// Package httpapi is the JSON-over-HTTP transport for the portal backend.
// It owns bearer-token injection, outbound rate limiting, tolerant response
// envelope decoding, and the mapping of HTTP failures onto structured
// application errors. Stores above it never see net/http.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/procurehub/portal-client/internal/domain/errors"
	"github.com/procurehub/portal-client/internal/infrastructure/config"
	"github.com/procurehub/portal-client/internal/infrastructure/keystore"
)

// TokenSource supplies the bearer token attached to outgoing requests.
// The token is read per request, so a login or logout between two calls
// takes effect immediately.
type TokenSource interface {
	Token() (string, bool)
}

// KeystoreTokens reads the token from the persisted session.
type KeystoreTokens struct {
	Store keystore.Store
}

func (k KeystoreTokens) Token() (string, bool) {
	v, err := k.Store.Get(keystore.KeyToken)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

// StaticToken is a fixed token, used by tests.
type StaticToken string

func (s StaticToken) Token() (string, bool) { return string(s), s != "" }

// Client is the portal REST client.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	limiter        *rate.Limiter
	logger         *zap.Logger
	tracer         trace.Tracer
	onUnauthorized func()
}

// NewClient creates a client for the configured backend.
func NewClient(cfg *config.APIConfig, tokens TokenSource, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("api config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base URL is required")
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		limiter:    limiter,
		logger:     logger,
		tracer:     otel.Tracer("portal-client/httpapi"),
	}, nil
}

// SetOnUnauthorized registers the hook invoked whenever the server answers
// 401. The session layer uses it to force a logout; the client itself does
// nothing beyond invoking it.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// get issues a GET and returns the raw response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, "", nil)
}

// sendJSON issues method with a JSON-encoded payload.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.NewInternalError("encoding request payload").WithCause(err)
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, method, path, nil, "application/json", body)
}

// do performs one request: rate limit, auth header, span, error mapping.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.NewTransportError("rate limiter interrupted").WithCause(err)
		}
	}

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("%s %s", method, path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		))
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.NewInternalError("building request").WithCause(err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, errors.NewTransportError("request failed").WithCause(err)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.NewTransportError("reading response").WithCause(err)
	}

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		appErr := c.failure(res.StatusCode, raw)
		span.SetStatus(codes.Error, appErr.Message)
		if res.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, appErr
	}

	return raw, nil
}

// failure maps an HTTP error response onto an AppError, extracting the
// most specific message the server offered.
func (c *Client) failure(statusCode int, body []byte) *errors.AppError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	// A non-JSON error body is fine; the status text carries the message.
	_ = json.Unmarshal(body, &payload)

	return errors.FromStatus(statusCode, payload.Message, payload.Error, http.StatusText(statusCode))
}
