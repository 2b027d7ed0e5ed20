package azopenai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/modehaus/lookbook-backend/internal/pkg/envutil"
	pkgerrors "github.com/modehaus/lookbook-backend/internal/pkg/errors"
	"github.com/modehaus/lookbook-backend/internal/pkg/httpx"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

// SourceImage is one clothing item image sent to the edit API.
type SourceImage struct {
	Filename string
	Bytes    []byte
	MimeType string
}

// Composer turns a set of clothing item images plus an instruction into one
// generated outfit image.
type Composer interface {
	Compose(ctx context.Context, images []SourceImage, instruction string) ([]byte, error)
}

// Client calls the Azure OpenAI image edit API. A single generation can take
// minutes, so the per-attempt timeout is generous and callers are expected to
// run Compose off the request-accepting goroutine pool's hot path.
type Client struct {
	log        *logger.Logger
	endpoint   string
	deployment string
	apiVersion string
	size       string
	quality    string
	tokens     TokenProvider
	httpClient *http.Client

	maxAttempts int
	backoffBase time.Duration
}

func NewClient(log *logger.Logger, tokens TokenProvider) (*Client, error) {
	endpoint := strings.TrimSpace(os.Getenv("AOAI_API_BASE"))
	if endpoint == "" {
		return nil, fmt.Errorf("missing AOAI_API_BASE")
	}
	endpoint = strings.TrimRight(endpoint, "/")

	deployment := strings.TrimSpace(os.Getenv("AOAI_DEPLOYMENT_NAME"))
	if deployment == "" {
		deployment = "gpt-image-1"
	}
	apiVersion := strings.TrimSpace(os.Getenv("AOAI_API_VERSION"))
	if apiVersion == "" {
		apiVersion = "2025-04-01-preview"
	}
	size := strings.TrimSpace(os.Getenv("AOAI_IMAGE_SIZE"))
	if size == "" {
		size = "1024x1536"
	}
	quality := strings.TrimSpace(os.Getenv("AOAI_IMAGE_QUALITY"))
	if quality == "" {
		quality = "high"
	}

	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	timeoutSec := envutil.GetInt("AOAI_TIMEOUT_SECONDS", 180, log)
	if timeoutSec <= 0 {
		timeoutSec = 180
	}
	maxAttempts := envutil.GetInt("AOAI_MAX_ATTEMPTS", 3, log)
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if tokens == nil {
		return nil, fmt.Errorf("token provider required")
	}

	return &Client{
		log:         log.With("service", "ImageEditClient"),
		endpoint:    endpoint,
		deployment:  deployment,
		apiVersion:  apiVersion,
		size:        size,
		quality:     quality,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxAttempts: maxAttempts,
		backoffBase: 2 * time.Second,
	}, nil
}

type editsResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Compose sends all item images plus the instruction in one multipart request
// and returns the decoded generated image. Transient provider failures (429,
// 5xx) are retried with exponential backoff until the attempt budget is
// spent; every other failure is final.
func (c *Client) Compose(ctx context.Context, images []SourceImage, instruction string) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided: %w", pkgerrors.ErrInvalidArgument)
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("instruction required: %w", pkgerrors.ErrInvalidArgument)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	backoff := c.backoffBase
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		raw, resp, err := c.composeOnce(ctx, token, images, instruction)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var empty *EmptyResultError
		if errors.As(err, &empty) {
			return nil, err
		}
		if !httpx.IsRetryableError(err) {
			return nil, &GenerationError{Attempts: attempt, Err: err}
		}
		if attempt == c.maxAttempts {
			break
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 30*time.Second))
		c.log.Warn("Image edit request retrying",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return nil, &GenerationError{Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) composeOnce(ctx context.Context, token string, images []SourceImage, instruction string) ([]byte, *http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, img := range images {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image[]"; filename=%q`, img.Filename))
		mime := img.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		hdr.Set("Content-Type", mime)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return nil, nil, fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(img.Bytes); err != nil {
			return nil, nil, fmt.Errorf("write image part: %w", err)
		}
	}

	fields := map[string]string{
		"prompt":  instruction,
		"n":       "1",
		"size":    c.size,
		"quality": c.quality,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/images/edits?api-version=%s", c.endpoint, c.deployment, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &apiHTTPError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	var envelope editsResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, resp, fmt.Errorf("decode image edit response: %w", err)
	}
	if len(envelope.Data) == 0 || strings.TrimSpace(envelope.Data[0].B64JSON) == "" {
		return nil, resp, &EmptyResultError{Detail: "empty data array"}
	}

	raw, err := base64.StdEncoding.DecodeString(envelope.Data[0].B64JSON)
	if err != nil || len(raw) == 0 {
		return nil, resp, fmt.Errorf("decode image base64: %w", err)
	}
	return raw, resp, nil
}

func truncateBody(body []byte) string {
	const maxLen = 512
	s := string(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
