// Package sheets talks to the spreadsheet-backed guest-list web app.
//
// Every response is decoded at this boundary: a "success" status yields the
// payload, any other status yields a *ServerError carrying the server's
// message, and everything else (network, HTTP status, malformed JSON) is a
// plain wrapped error.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"wedding-checkin/internal/models"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// ServerError is a response whose status was not "success".
type ServerError struct {
	Status  string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server reported %q: %s", e.Status, e.Message)
}

// Config configures a Client
type Config struct {
	ReadURL  string
	WriteURL string
	Timeout  time.Duration
}

// Client reads and writes the guest list over HTTP. Each call is bounded by
// Config.Timeout.
type Client struct {
	http *http.Client
	cfg  Config
	log  zerolog.Logger
}

// NewClient creates a new client for the given endpoints. A nil httpClient
// uses a default client; redirects are followed, which the web app relies on.
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	if _, err := url.Parse(cfg.ReadURL); err != nil {
		return nil, fmt.Errorf("parse read url: %w", err)
	}
	if cfg.WriteURL == "" {
		cfg.WriteURL = cfg.ReadURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http: httpClient,
		cfg:  cfg,
		log:  logger.With().Str("component", "sheets").Logger(),
	}, nil
}

// Search fetches the attendees matching term under the given criteria.
func (c *Client) Search(ctx context.Context, criteria models.SearchCriteria, term string) ([]models.Attendee, error) {
	env, err := c.get(ctx, string(criteria), term)
	if err != nil {
		return nil, err
	}

	var attendees []models.Attendee
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &attendees); err != nil {
			return nil, fmt.Errorf("decode attendees: %w", err)
		}
	}
	return attendees, nil
}

// Names fetches every known responder name.
func (c *Client) Names(ctx context.Context) ([]string, error) {
	env, err := c.get(ctx, string(models.ByName), models.AllNames)
	if err != nil {
		return nil, err
	}
	return env.Names, nil
}

// CheckIn marks the given unique ids as checked in and returns the server's
// confirmation message.
func (c *Client) CheckIn(ctx context.Context, uniqueIDs []string) (string, error) {
	body, err := json.Marshal(models.CheckInRequest{UniqueIDs: uniqueIDs})
	if err != nil {
		return "", fmt.Errorf("encode check-in request: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WriteURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build check-in request: %w", err)
	}
	// text/plain keeps browsers from sending a CORS preflight the web app cannot answer
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	env, err := c.do(req)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) get(ctx context.Context, param, value string) (*models.Envelope, error) {
	u, err := url.Parse(c.cfg.ReadURL)
	if err != nil {
		return nil, fmt.Errorf("parse read url: %w", err)
	}
	q := u.Query()
	q.Set(param, value)
	u.RawQuery = q.Encode()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*models.Envelope, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", req.Method, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Status == "" {
		return nil, errors.New("decode response: missing status")
	}
	if !env.OK() {
		return nil, &ServerError{Status: env.Status, Message: env.Message}
	}
	return &env, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
