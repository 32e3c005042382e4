// Package apiclient talks to the Alama API over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/marksheet"
)

// DefaultTimeout is used when the config has none.
const DefaultTimeout = 15 * time.Second

// Client implements marksheet.Backend against the Alama API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  core.Logger
}

var _ marksheet.Backend = (*Client)(nil)

func New(conf core.ClientConfig, logger core.Logger) *Client {
	if conf.Timeout <= 0 {
		conf.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		token:   conf.Token,
		http:    &http.Client{Timeout: conf.Timeout},
		logger:  logger,
	}
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Token string `json:"token"`
	}
)

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, "logging in", http.MethodPost, "/v1/users/login", nil, loginRequest{username, password}, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) ListStudentsByClass(ctx context.Context, classID string) ([]marksheet.Student, error) {
	var students []marksheet.Student
	path := "/v1/classes/" + url.PathEscape(classID) + "/students"
	if err := c.do(ctx, "listing students", http.MethodGet, path, nil, nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (c *Client) ListMarks(ctx context.Context, classID, subjectID string, examType mark.ExamType) ([]marksheet.MarkRecord, error) {
	q := url.Values{}
	q.Set("class_id", classID)
	q.Set("subject_id", subjectID)
	q.Set("exam_type", string(examType))

	var marks []marksheet.MarkRecord
	if err := c.do(ctx, "listing marks", http.MethodGet, "/v1/marks", q, nil, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

func (c *Client) UpsertMark(ctx context.Context, req marksheet.UpsertRequest) (marksheet.MarkRecord, error) {
	var rec marksheet.MarkRecord
	if err := c.do(ctx, "saving mark", http.MethodPut, "/v1/marks", nil, req, &rec); err != nil {
		return marksheet.MarkRecord{}, err
	}
	return rec, nil
}

func (c *Client) ListOwnMarks(ctx context.Context) (marksheet.OwnMarks, error) {
	var own marksheet.OwnMarks
	if err := c.do(ctx, "listing own marks", http.MethodGet, "/v1/marks/me", nil, nil, &own); err != nil {
		return marksheet.OwnMarks{}, err
	}
	return own, nil
}

// do sends one request. Any failure is returned as a *marksheet.TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	fail := func(status int, err error) error {
		terr := &marksheet.TransportError{Op: op, Status: status, Err: err}
		if c.logger != nil {
			c.logger.Debug("api request failed", terr, map[string]interface{}{"method": method, "path": path})
		}
		return terr
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fail(0, errors.Wrap(err, "encoding request"))
		}
		reqBody = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fail(0, errors.Wrap(err, "building request"))
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
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, decodeError(resp.Body))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, errors.Wrap(err, "decoding response"))
	}
	return nil
}

// decodeError reads an API error body: either {"error": msg} or a field -> message map.
func decodeError(r io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(r, 1<<16))
	if err != nil || len(raw) == 0 {
		return errors.New("empty error response")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return errors.New(strings.TrimSpace(string(raw)))
	}
	if msg, ok := fields["error"].(string); ok && len(fields) == 1 {
		return errors.New(msg)
	}
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s: %v", k, v))
	}
	sort.Strings(parts)
	return errors.New(strings.Join(parts, "; "))
}
