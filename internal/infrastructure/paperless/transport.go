package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type StatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "paperless status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("paperless %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("paperless %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	return c.call(ctx, operation, func(callCtx context.Context) error {
		resp, err := c.do(callCtx, operation, http.MethodGet, path, query, nil, "")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return decodeJSON(operation, resp.Body, out)
	})
}

func (c *Client) sendJSON(ctx context.Context, operation, method, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}
	return c.call(ctx, operation, func(callCtx context.Context) error {
		resp, err := c.do(callCtx, operation, method, path, nil, bytes.NewReader(body), "application/json")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return decodeJSON(operation, resp.Body, out)
	})
}

// do sends one authenticated request. Non-2xx answers come back as *StatusError
// with the response body already drained.
func (c *Client) do(
	ctx context.Context,
	operation, method, path string,
	query url.Values,
	body io.Reader,
	contentType string,
) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paperless %s request: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, readStatusError(operation, resp)
	}
	return resp, nil
}

func readStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

func decodeJSON(operation string, r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return &decodeError{operation: operation, err: err}
	}
	return nil
}

type decodeError struct {
	operation string
	err       error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.operation, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
