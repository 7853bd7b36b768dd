package gcsclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"gcsync/internal/errs"
)

// doJSON issues an HTTP request with retry/backoff and returns the
// response body on a 2xx status. The caller must close the returned
// body.
func (c *Client) doJSON(ctx context.Context, method, url string, body io.Reader, op, key string) (io.ReadCloser, error) {
	return c.doJSONWithContentType(ctx, method, url, body, "application/json", op, key)
}

func (c *Client) doJSONWithContentType(ctx context.Context, method, url string, body io.Reader, contentType, op, key string) (io.ReadCloser, error) {
	return c.doStream(ctx, method, url, withContentType(body, contentType), op, key)
}

type bodyWithType struct {
	io.Reader
	contentType string
}

func withContentType(body io.Reader, contentType string) *bodyWithType {
	return &bodyWithType{Reader: body, contentType: contentType}
}

// doStream performs the retrying request/response cycle shared by every
// Object Client endpoint. Non-retryable errors (4xx other than 408/429)
// fail immediately; retryable ones (5xx, 408, 429, transport failures)
// are retried with truncated exponential backoff, up to MaxAttempts.
func (c *Client) doStream(ctx context.Context, method, url string, body io.Reader, op, key string) (io.ReadCloser, error) {
	var contentType string
	if bt, ok := body.(*bodyWithType); ok {
		contentType = bt.contentType
		body = bt.Reader
	}

	// Buffer the body so it can be replayed across retries. The whole
	// request body is held in memory, including an UploadSimple
	// multipart payload together with the object bytes it carries.
	// Response bodies (Download's bytes included) are streamed back to
	// the caller and are not retried mid-transfer.
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return nil, errs.New(errs.LocalIO, op, key, err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.backoffDelay(attempt - 1)):
			case <-ctx.Done():
				return nil, errs.New(errs.Cancelled, op, key, ctx.Err())
			}
		}

		var reqBody io.Reader
		if bodyBytes != nil {
			reqBody = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, errs.New(errs.Config, op, key, err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if err := c.authorize(ctx, req); err != nil {
			return nil, errs.New(errs.Auth, op, key, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errs.New(errs.Transport, op, key, err)
			continue
		}

		if classifyErr := classifyResponse(op, key, resp); classifyErr != nil {
			resp.Body.Close()
			lastErr = classifyErr
			se, _ := classifyErr.(*errs.SyncError)
			if se != nil && errs.Retryable(se.Status) {
				continue
			}
			return nil, classifyErr
		}

		return resp.Body, nil
	}

	return nil, lastErr
}

