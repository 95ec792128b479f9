// Package client is the data layer used by front ends of the API. It keeps
// the session token, normalizes every response and assembles view models
// with the affordances the current user is allowed to see.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/valyala/fasthttp"

	"projecthub/normalize"
	"projecthub/policy"
)

const defaultTimeout = 10 * time.Second

// ErrNoSession is returned by calls that need a signed-in user.
var ErrNoSession = errors.New("not signed in")

// APIError is an error response from the server.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// NotFoundError reports that a requested entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Options struct {
	Timeout time.Duration
	// Dial overrides how connections are made; tests use an in-memory listener.
	Dial  fasthttp.DialFunc
	Store SessionStore
	// Breaker guards secondary fetches. Zero value settings get defaults.
	Breaker gobreaker.Settings
	Logger  *logrus.Entry
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
	store   SessionStore
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Entry

	mu      sync.RWMutex
	session *Session
}

// New returns a client for the API rooted at baseURL (for example
// "http://localhost:5000").
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "client")
	}

	logger := opts.Logger
	settings := opts.Breaker
	if settings.Name == "" {
		settings.Name = "secondary-fetch"
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Timeout == 0 {
		settings.Timeout = 5 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		}
	}
	if settings.IsSuccessful == nil {
		// 4xx responses and missing entities do not count as failures.
		settings.IsSuccessful = func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			var nf *NotFoundError
			return err == nil || errors.As(err, &nf)
		}
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("Circuit breaker state changed")
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &fasthttp.Client{
			Name: "hubctl",
			Dial: opts.Dial,
		},
		timeout: opts.Timeout,
		store:   opts.Store,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Actor is the policy actor for the signed-in user; the zero actor when
// signed out.
func (c *Client) Actor() policy.Actor {
	s := c.Session()
	if s == nil {
		return policy.Actor{}
	}
	return policy.ActorFromUser(s.User)
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) token() string {
	if s := c.Session(); s != nil {
		return s.Token
	}
	return ""
}

// do sends a JSON request and returns the decoded response body. Error
// statuses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(data)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	payload := resp.Body()
	if status >= fasthttp.StatusBadRequest {
		apiErr := &APIError{Status: status}
		var errBody struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		if json.Unmarshal(payload, &errBody) == nil {
			apiErr.Message = errBody.Error
			apiErr.Field = errBody.Field
		}
		c.logger.WithFields(logrus.Fields{"method": method, "path": path, "status": status}).Debug("Request failed")
		return nil, apiErr
	}

	if len(payload) == 0 {
		return nil, nil
	}
	v, err := normalize.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return v, nil
}

// notFound converts a 404 into a NotFoundError for entity.
func notFound(err error, entity, id string) error {
	if IsStatus(err, fasthttp.StatusNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}

// secondary runs fn through the breaker. A failure is recorded as a warning
// and reported as ok == false so the caller can fall back to empty data.
func (c *Client) secondary(name string, warnings *[]string, fn func() (any, error)) (any, bool) {
	v, err := c.breaker.Execute(fn)
	if err != nil {
		c.logger.WithError(err).WithField("fetch", name).Warn("Secondary fetch failed")
		*warnings = append(*warnings, fmt.Sprintf("%s unavailable: %v", name, err))
		return nil, false
	}
	return v, true
}
