// Package ckanapi talks to a remote CKAN action API and exposes its show, update and
// create actions as entity backends.
package ckanapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sei-protocol/ckanpatch/entity"
)

const defaultTimeout = 30 * time.Second

// Client calls actions of a CKAN instance.
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
	log    zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the Authorization header of every call.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the CKAN instance at baseURL, e.g. https://demo.ckan.org.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api URL %q must be http or https", baseURL)
	}
	c := &Client{
		base: base,
		http: &http.Client{Timeout: defaultTimeout},
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is an action failure the client does not map onto an entity error.
type APIError struct {
	Action  string
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Action, e.Status)
	if e.Type != "" {
		msg += " " + e.Type
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   map[string]any  `json:"error"`
}

// Call posts params to the named action and returns its raw result.
func (c *Client) Call(ctx context.Context, action string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", action, err)
	}
	endpoint := c.base.JoinPath("api/3/action", action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	c.log.Debug().Str("action", action).Str("url", endpoint.String()).Msg("calling action")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", action, err)
	}
	all, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading %s response body: %w", action, err)
	}

	var env envelope
	if err := json.Unmarshal(all, &env); err != nil {
		return nil, &APIError{Action: action, Status: resp.StatusCode, Message: strings.TrimSpace(string(all))}
	}
	if !env.Success || resp.StatusCode != http.StatusOK {
		return nil, &actionError{action: action, status: resp.StatusCode, body: env.Error}
	}
	return env.Result, nil
}

// actionError is an undecoded action failure; callers map it with asEntityError.
type actionError struct {
	action string
	status int
	body   map[string]any
}

func (e *actionError) Error() string {
	return e.apiError().Error()
}

func (e *actionError) apiError() *APIError {
	typ, _ := e.body["__type"].(string)
	msg, _ := e.body["message"].(string)
	return &APIError{Action: e.action, Status: e.status, Type: typ, Message: msg}
}

func asEntityError(err error, kind entity.Kind, id any, user string) error {
	var ae *actionError
	if !errors.As(err, &ae) {
		return err
	}
	api := ae.apiError()
	switch api.Type {
	case "Not Found Error":
		return &entity.NotFoundError{Kind: kind, ID: id}
	case "Authorization Error":
		return &entity.AuthorizationError{Action: ae.action, User: user, Reason: api.Message}
	case "Validation Error":
		fields := make(map[string]string)
		for k, v := range ae.body {
			if k == "__type" {
				continue
			}
			fields[k] = joinMessages(v)
		}
		return &entity.ValidationError{Kind: kind, Fields: fields}
	default:
		return api
	}
}

func joinMessages(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			parts = append(parts, joinMessages(p))
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+joinMessages(m[k]))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(m)
	}
}
