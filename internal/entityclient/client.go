// Package entityclient is a generic HTTP client for the entity API with
// sample-data fallbacks for read paths.
package entityclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
)

// Record is one entity as returned by the API.
type Record = map[string]interface{}

// Query narrows a list. Filters are exact matches on whitelisted fields.
type Query struct {
	Filters map[string]string
	Sort    string
	Limit   int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithSamples registers records served when a list cannot be fetched or is empty.
func WithSamples(samples map[string][]Record) Option {
	return func(c *Client) { c.samples = samples }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// WithRetryDelay sets the pause before the single retry of a 5xx response.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

type Client struct {
	baseURL    string
	token      string
	http       *http.Client
	samples    map[string][]Record
	logger     *logger.Logger
	retryDelay time.Duration
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080/api/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Discard(),
		retryDelay: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("entity api returned %d: %s", e.StatusCode, e.Message)
}

// classify maps an API status to the application error taxonomy.
func classify(e *StatusError) error {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &apperr.Error{Kind: apperr.KindValidation, Message: e.Message, Cause: e}
	case http.StatusUnauthorized:
		return &apperr.Error{Kind: apperr.KindUnauthorized, Message: e.Message, Cause: e}
	case http.StatusForbidden:
		return &apperr.Error{Kind: apperr.KindForbidden, Message: e.Message, Cause: e}
	case http.StatusNotFound:
		return &apperr.Error{Kind: apperr.KindNotFound, Message: e.Message, Cause: e}
	case http.StatusConflict:
		return &apperr.Error{Kind: apperr.KindConflict, Message: e.Message, Cause: e}
	}
	return apperr.Internal("entity api request failed", e)
}

func (c *Client) entityURL(entity string, id string, q url.Values) string {
	u := c.baseURL + "/entities/" + url.PathEscape(entity)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// do sends one request and retries once when the server answers 5xx.
func (c *Client) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	var lastErr *StatusError
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		lastErr = &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
		if resp.StatusCode < 500 {
			break
		}
		c.logger.WithComponent("entityclient").WithField("url", target).WithField("status", resp.StatusCode).
			Warn("Entity API server error")
	}
	return nil, classify(lastErr)
}

func errorMessage(body []byte, fallback string) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return fallback
}

// decodeList accepts a bare array, {"results": [...]}, {"data": [...]} or
// the server envelope whose data is an array.
func decodeList(body []byte) ([]Record, error) {
	var list []Record
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode entity list: %w", err)
	}
	for _, key := range []string{"results", "data", "items"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if string(raw) == "null" {
			return []Record{}, nil
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
		if inner, err := decodeList(raw); err == nil {
			return inner, nil
		}
	}
	return nil, fmt.Errorf("decode entity list: no array in response")
}

// decodeOne accepts a bare object or an envelope with a data object.
func decodeOne(body []byte) (Record, error) {
	var obj Record
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	if inner, ok := obj["data"].(map[string]interface{}); ok {
		if _, isEnvelope := obj["status"]; isEnvelope {
			return inner, nil
		}
	}
	return obj, nil
}

// List returns every record of entity, sorted and limited.
func (c *Client) List(ctx context.Context, entity, sortBy string, limit int) ([]Record, error) {
	return c.Filter(ctx, entity, Query{Sort: sortBy, Limit: limit})
}

// Filter queries entity. When the request fails or returns nothing and
// samples are registered for entity, the samples are returned instead.
func (c *Client) Filter(ctx context.Context, entity string, q Query) ([]Record, error) {
	params := url.Values{}
	for k, v := range q.Filters {
		params.Set(k, v)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := c.do(ctx, http.MethodGet, c.entityURL(entity, "", params), nil)
	var list []Record
	if err == nil {
		list, err = decodeList(body)
	}
	if err == nil && len(list) > 0 {
		return list, nil
	}

	samples, ok := c.samples[entity]
	if !ok {
		if err != nil {
			return nil, err
		}
		return []Record{}, nil
	}
	entry := c.logger.WithComponent("entityclient").WithField("entity", entity)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("Serving sample records")
	return applyQuery(samples, q), nil
}

// applyQuery filters, sorts and limits records locally.
func applyQuery(records []Record, q Query) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matches(r, q.Filters) {
			out = append(out, r)
		}
	}
	if q.Sort != "" {
		field, desc := strings.TrimPrefix(q.Sort, "-"), strings.HasPrefix(q.Sort, "-")
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return less(out[j][field], out[i][field])
			}
			return less(out[i][field], out[j][field])
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matches(r Record, filters map[string]string) bool {
	for k, want := range filters {
		if fmt.Sprint(r[k]) != want {
			return false
		}
	}
	return true
}

func less(a, b interface{}) bool {
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func (c *Client) Get(ctx context.Context, entity, id string) (Record, error) {
	body, err := c.do(ctx, http.MethodGet, c.entityURL(entity, id, nil), nil)
	if err != nil {
		return nil, err
	}
	return decodeOne(body)
}

func (c *Client) Create(ctx context.Context, entity string, data Record) (Record, error) {
	return c.write(ctx, http.MethodPost, entity, "", data)
}

func (c *Client) Update(ctx context.Context, entity, id string, data Record) (Record, error) {
	return c.write(ctx, http.MethodPut, entity, id, data)
}

func (c *Client) write(ctx context.Context, method, entity, id string, data Record) (Record, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, apperr.Validation("record is not valid JSON: " + err.Error())
	}
	body, err := c.do(ctx, method, c.entityURL(entity, id, nil), payload)
	if err != nil {
		return nil, err
	}
	return decodeOne(body)
}

func (c *Client) Delete(ctx context.Context, entity, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.entityURL(entity, id, nil), nil)
	return err
}
