// Package client calls the generation API of a remote dreamlab service and
// waits for asynchronous generations with the same polling contract the
// service applies in-process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dreamlab/internal/domain"
	"dreamlab/internal/generation"
	"dreamlab/internal/infra"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	Token          string
	HTTPClient     *http.Client
	Policy         generation.Policy
	Sleep          generation.SleepFunc
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to /v1/generations.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	poller     *generation.Poller
	logger     *infra.Logger
}

// New builds a client; BaseURL is required by every call.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: httpClient,
		poller:     generation.NewPoller(opts.Policy, opts.Sleep, logger),
		logger:     logger,
	}
}

// Generate dispatches req and blocks until the generation is terminal.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	res, err := c.Dispatch(ctx, req)
	if err != nil {
		return res, err
	}
	switch res.State {
	case domain.StateCompleted:
		return res, nil
	case domain.StateFailed:
		return res, generation.FailureError(res)
	}
	return c.poller.Wait(ctx, res.ID, c.Status)
}

// Dispatch creates a generation without waiting for it.
func (c *Client) Dispatch(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("encode request: %w", err)
	}
	var res domain.GenerationResult
	err = c.do(ctx, http.MethodPost, "/v1/generations?mode=async", payload, domain.KindProviderRequest, &res)
	return res, err
}

// Status reads the current state of a generation.
func (c *Client) Status(ctx context.Context, id string) (domain.GenerationResult, error) {
	var res domain.GenerationResult
	err := c.do(ctx, http.MethodGet, "/v1/generations/"+url.PathEscape(id), nil, domain.KindProviderPoll, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, kind domain.ErrorKind, out any) error {
	if c.baseURL == "" {
		return &domain.GenerationError{Kind: domain.KindConfiguration, Message: "client: base url is not configured"}
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.GenerationError{Kind: kind, Message: fmt.Sprintf("%s %s: %v", method, path, err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.GenerationError{Kind: kind, StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err), Err: err}
	}
	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("client: response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw, kind)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.GenerationError{Kind: kind, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), Body: string(raw), Err: err}
	}
	return nil
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Kind    string `json:"kind"`
	} `json:"error"`
}

// decodeError maps the service's error envelope back onto the domain errors.
func decodeError(status int, raw []byte, fallback domain.ErrorKind) error {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || (env.Error.Message == "" && env.Error.Code == "") {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &domain.GenerationError{Kind: fallback, StatusCode: status, Message: fmt.Sprintf("status %d: %s", status, msg), Body: string(raw)}
	}
	msg := env.Error.Message
	if kind := domain.KindFromString(env.Error.Kind); kind != 0 {
		return &domain.GenerationError{Kind: kind, StatusCode: status, Message: msg}
	}
	switch env.Error.Code {
	case "synchronous_id":
		return fmt.Errorf("%w: %s", domain.ErrSynchronousID, msg)
	case "not_found":
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case "unauthorized":
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case "bad_request":
		return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, msg)
	}
	return &domain.GenerationError{Kind: fallback, StatusCode: status, Message: msg}
}

// IsRetryable reports whether err is worth re-issuing the whole Generate call.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrProviderRequest) || errors.Is(err, domain.ErrProviderPoll) || errors.Is(err, domain.ErrTimeout)
}
