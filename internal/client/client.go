// Package client talks to the prediction service and models the form that
// feeds it: submission state, reset and rendering.
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

	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/pkg/logger"
)

// Result is a successful prediction.
type Result struct {
	Quality quality.Quality `json:"quality"`
	Tips    []string        `json:"tips"`
	ID      string          `json:"id,omitempty"`
	Score   int             `json:"score,omitempty"`
	Factors []string        `json:"factors,omitempty"`
}

// errorBody is the non-2xx body.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Client posts habit records to POST /predict.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     logger.Logger
	predict string
}

// New creates a Client. The logger package must be initialized first.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		log:     logger.Get().Named("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}

	u, err := url.Parse(strings.TrimRight(c.baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.baseURL)
	}
	c.predict = u.String() + predictPath
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Predict submits rec and returns the result or one of TransportError,
// ServiceError or MalformedResponseError.
func (c *Client) Predict(ctx context.Context, rec habit.Record) (Result, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predict, bytes.NewReader(payload))
	if err != nil {
		return Result{}, &TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return Result{}, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &ServiceError{StatusCode: resp.StatusCode, Message: FallbackMessage}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			if eb.Error != "" {
				se.Message = eb.Error
			}
			se.Code = eb.Code
		}
		c.log.Debug(ctx, "prediction rejected",
			logger.Int("status", resp.StatusCode), logger.String("message", se.Message))
		return Result{}, se
	}

	res, err := decodeResult(body)
	if err != nil {
		c.log.Warn(ctx, "malformed prediction response", logger.Int("status", resp.StatusCode), logger.Error(err))
		return Result{}, &MalformedResponseError{StatusCode: resp.StatusCode, Err: err}
	}
	return res, nil
}

// decodeResult requires a JSON object carrying a known quality. A missing
// tips list is treated as empty.
func decodeResult(body []byte) (Result, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Result{}, errors.New("empty body")
	}
	var raw struct {
		Quality *string  `json:"quality"`
		Tips    []string `json:"tips"`
		ID      string   `json:"id"`
		Score   int      `json:"score"`
		Factors []string `json:"factors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, fmt.Errorf("decode body: %w", err)
	}
	if raw.Quality == nil {
		return Result{}, errors.New("missing quality")
	}
	q, err := quality.Parse(*raw.Quality)
	if err != nil {
		return Result{}, err
	}
	if raw.Tips == nil {
		raw.Tips = []string{}
	}
	return Result{Quality: q, Tips: raw.Tips, ID: raw.ID, Score: raw.Score, Factors: raw.Factors}, nil
}
