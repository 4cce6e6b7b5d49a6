package schoolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
)

// TenantHeader carries the school a request acts for.
const TenantHeader = "X-Tenant-ID"

// Client talks to the school backend on behalf of one school.
type Client struct {
	conf       core.BackendConfig
	schoolID   string
	httpClient *http.Client
	logger     core.Logger
	debug      bool
}

func NewClient(conf core.BackendConfig, schoolID string, httpClient *http.Client, logger core.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: conf.Timeout}
	}
	return &Client{
		conf:       conf,
		schoolID:   schoolID,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// do sends body as JSON to path and decodes the response into out (when not nil).
// Non-2xx responses are returned as *core.APIError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.conf.BaseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.conf.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.conf.Token)
	}
	if c.schoolID != "" {
		req.Header.Set(TenantHeader, c.schoolID)
	}
	if c.debug && c.logger != nil {
		c.logger.Debug(fmt.Sprintf("%s: %s %s", op, method, req.URL))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, op)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, op+": reading response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &core.APIError{Op: op, Status: resp.StatusCode, Message: extractMessage(data, resp.StatusCode)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, op+": decoding response")
	}
	return nil
}

// extractMessage picks the most specific message of an error payload, in order:
// the first `details` entry, a string `details`, `error`, `message`, then a generic fallback.
func extractMessage(body []byte, status int) string {
	var payload struct {
		Details json.RawMessage `json:"details"`
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	fallback := fmt.Sprintf("request failed with status %d", status)
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	if msg := detailsMessage(payload.Details); msg != "" {
		return msg
	}
	if msg := stringOrMessage(payload.Error); msg != "" {
		return msg
	}
	if payload.Message != "" {
		return payload.Message
	}
	return fallback
}

func detailsMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		return stringOrMessage(list[0])
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// stringOrMessage reads raw as a string or as an object with a `message` field.
func stringOrMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}
	return ""
}
