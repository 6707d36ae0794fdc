package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
	"vision-platform-client/internal/metrics"
)

const (
	headerRequestID = "X-Request-ID"
	defaultPageSize = 500
)

// TokenSource supplies bearer tokens for outbound requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Refresh replaces stale after the platform reported it expired.
	Refresh(ctx context.Context, stale string) (string, error)
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

// Client is the typed resource client for the platform REST API.
type Client struct {
	rc       *resty.Client
	tokens   TokenSource
	pageSize int
}

var _ output.PlatformClient = (*Client)(nil)

func NewClient(cfg Config, tokens TokenSource) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/api/v1").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{rc: rc, tokens: tokens, pageSize: pageSize}
}

// call describes one REST request.
type call struct {
	op      string
	method  string
	path    string
	payload any
	prepare func(r *resty.Request)
	// sink receives the body of a successful response instead of buffering it.
	sink io.Writer
}

type result struct {
	status  int
	body    []byte
	written int64
}

// execute sends the call, refreshing the session and retrying exactly once
// when the platform reports the access token as expired.
func (c *Client) execute(ctx context.Context, cl call) (*result, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.send(ctx, cl, token)
	if !errors.Is(err, domain.ErrExpiredToken) {
		return res, err
	}

	log.WithField("op", cl.op).Debug("access token expired, refreshing session")
	token, err = c.tokens.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, cl, token)
}

func (c *Client) send(ctx context.Context, cl call, token string) (*result, error) {
	requestID := uuid.NewString()
	req := c.rc.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader(headerRequestID, requestID)
	if cl.prepare != nil {
		cl.prepare(req)
	}
	if cl.sink != nil {
		req.SetDoNotParseResponse(true)
	}

	entry := log.WithFields(log.Fields{
		"op":         cl.op,
		"method":     cl.method,
		"path":       cl.path,
		"request_id": requestID,
	})

	start := time.Now()
	res, err := req.Execute(cl.method, cl.path)
	if err != nil {
		metrics.RecordClientRequest(cl.op, "network", time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		entry.WithError(err).Debug("platform request failed")
		return nil, &domain.RemoteError{Kind: domain.ErrNetwork, Op: cl.op, Message: "request failed", Err: err}
	}

	out := &result{status: res.StatusCode()}
	if cl.sink != nil {
		out.body, out.written, err = drain(res, cl.sink)
	} else {
		out.body = res.Body()
	}
	if err != nil {
		metrics.RecordClientRequest(cl.op, "network", time.Since(start))
		return nil, &domain.RemoteError{Kind: domain.ErrNetwork, Op: cl.op, StatusCode: out.status, Message: "reading response body", Err: err}
	}

	if out.status >= 400 {
		rerr := errorFromResponse(cl.op, out.status, out.body, cl.payload)
		metrics.RecordClientRequest(cl.op, outcome(rerr), time.Since(start))
		entry.WithField("status", out.status).WithError(rerr).Debug("platform request rejected")
		return nil, rerr
	}

	metrics.RecordClientRequest(cl.op, "ok", time.Since(start))
	entry.WithFields(log.Fields{
		"status":   out.status,
		"duration": time.Since(start),
	}).Debug("platform request completed")
	return out, nil
}

// drain copies a successful unparsed body into sink, or buffers an error body.
func drain(res *resty.Response, sink io.Writer) ([]byte, int64, error) {
	raw := res.RawBody()
	if raw == nil {
		return nil, 0, nil
	}
	defer raw.Close()

	if res.StatusCode() >= 400 {
		body, err := io.ReadAll(raw)
		return body, 0, err
	}
	n, err := io.Copy(sink, raw)
	return nil, n, err
}

func decode(op string, res *result, out any) error {
	if err := json.Unmarshal(res.body, out); err != nil {
		return &domain.RemoteError{
			Kind:       domain.ErrNetwork,
			Op:         op,
			StatusCode: res.status,
			Message:    "malformed response body",
			Err:        err,
		}
	}
	return nil
}

// missing reports an absent identifier without contacting the platform.
func missing(op string, sentinel error) error {
	return &domain.RemoteError{Kind: domain.ErrValidation, Op: op, Message: sentinel.Error(), Err: sentinel}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
