// Package vision calls the Gemini vision model to turn a photographed
// receipt or screenshot into the category's raw field map.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"shiftledger/constants"
	"shiftledger/internal/common"
	"shiftledger/internal/config"
)

// Recognizer is the interface the batch runner depends on.
type Recognizer interface {
	Recognize(ctx context.Context, req Request) (map[string]any, error)
}

// Request carries one image extraction.
type Request struct {
	Category  constants.Category
	ImageName string
	MIMEType  string // e.g. image/png
	Image     []byte
}

// Client implements Recognizer against the Gemini API.
type Client struct {
	cfg     config.VisionConfig
	client  *genai.Client
	limiter *rpmLimiter
	logger  *slog.Logger
}

// NewClient builds the Gemini client once per session.
func NewClient(ctx context.Context, cfg config.VisionConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, common.NewAppError("VISION", "create genai client", err)
	}
	return &Client{
		cfg:     cfg,
		client:  gc,
		limiter: newRPMLimiter(cfg.RPMLimit),
		logger:  logger,
	}, nil
}

// Recognize sends the image with the category prompt and returns the
// decoded, schema-validated field map. Quota errors are retried with
// exponential backoff.
func (c *Client) Recognize(ctx context.Context, req Request) (map[string]any, error) {
	rid := uuid.New().String()
	start := time.Now()

	schemaMap, err := BuildCategoryJSONSchema(req.Category)
	if err != nil {
		return nil, err
	}
	schemaJSON, err := json.MarshalIndent(schemaMap, "", "  ")
	if err != nil {
		return nil, common.NewAppError("VISION", "marshal schema", err)
	}

	c.logger.Info("vision.recognize.start",
		"req_id", rid,
		"category", string(req.Category),
		"image", req.ImageName,
		"model", c.cfg.Model,
		"image_bytes", len(req.Image),
	)

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: buildUserPrompt(req.Category, req.ImageName, string(schemaJSON))},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: req.Image}},
		},
	}}
	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	var text string
	retries := c.cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
		result, err := c.client.Models.GenerateContent(callCtx, c.cfg.Model, contents, genConfig)
		if err == nil {
			text = result.Text()
			if strings.TrimSpace(text) != "" {
				break
			}
			err = fmt.Errorf("empty response from model")
		}

		if attempt >= retries {
			c.logger.Error("vision.recognize.failed",
				"req_id", rid, "attempt", attempt, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, common.NewAppError("VISION", fmt.Sprintf("gemini call failed after %d attempts", attempt), err)
		}
		if isQuotaError(err) {
			wait := time.Duration(1<<attempt) * 5 * time.Second
			c.logger.Warn("vision.recognize.rate_limited",
				"req_id", rid, "attempt", attempt, "wait", wait.String())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		c.logger.Warn("vision.recognize.retry", "req_id", rid, "attempt", attempt, "error", err)
	}

	fields, err := decodeResponse(text, schemaMap)
	if err != nil {
		c.logger.Error("vision.recognize.decode_failed",
			"req_id", rid, "error", err, "raw", text,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	c.logger.Info("vision.recognize.ok",
		"req_id", rid,
		"category", string(req.Category),
		"fields", len(fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, nil
}

func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "429")
}
