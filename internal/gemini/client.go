// Package gemini implements integration with Google's Gemini AI API.
// It turns windows of recorded message edits into the stored
// edit-activity summaries.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/peerwatch/internal/config"
	"github.com/edgard/peerwatch/internal/database"
)

// Client defines the interface for AI operations used throughout the
// application. Callers hold a nil Client when no API key is configured
// and skip analysis entirely.
type Client interface {
	SummarizeEdits(ctx context.Context, peerID int64, edits []*database.MessageEdit) (string, error)
}

type sdkClient struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
}

// NewClient creates a new Gemini AI client with the provided configuration.
// It initializes the connection to the Gemini API and sets up necessary parameters.
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	log *slog.Logger,
) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	instruction := cfg.SystemInstruction
	if instruction == "" {
		instruction = EditAnalysisSystemInstruction
	}

	baseCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},

		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return &sdkClient{
		genaiClient:      gi,
		log:              logger,
		contentConfig:    baseCfg,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

// formatEditForAI renders one edit record the way the system instruction
// announces it: a dated header line, the old text behind "-", the new
// text behind "+".
func formatEditForAI(e *database.MessageEdit) string {
	author := "unknown"
	if e.UserID != 0 {
		author = strconv.FormatInt(e.UserID, 10)
	}
	oldText := e.OldText
	if oldText == "" {
		oldText = "(not captured)"
	}
	return fmt.Sprintf("[%s] message %d by UID %s:\n- %s\n+ %s",
		e.EditDate.Format("2006-01-02 15:04:05"), e.MessageID, author, oldText, e.NewText)
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var genAiAPIError *genai.APIError
		// Use errors.As to check if the error (or an error it wraps) is a *genai.APIError
		if errors.As(err, &genAiAPIError) && (genAiAPIError.Code == 500 || genAiAPIError.Code == 503) { // Retriable HTTP codes
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", genAiAPIError.Code)
				time.Sleep(c.retryDelay)
				continue
			}
			// Max retries reached for a retriable genai.APIError
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", genAiAPIError.Code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, genAiAPIError.Code, err)
		}

		// Not a retriable genai.APIError (either not genai.APIError, or not a 500/503 code)
		c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	// Unreachable while maxRetries >= 0; returning the last error covers
	// the negative edge case.
	return nil, err
}

func (c *sdkClient) SummarizeEdits(ctx context.Context, peerID int64, edits []*database.MessageEdit) (string, error) {
	c.log.DebugContext(ctx, "Summarizing edit activity", "peer_id", peerID, "edit_count", len(edits))
	if len(edits) == 0 {
		return "", fmt.Errorf("no edits to summarize")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(EditAnalysisRequestHeader, peerID, len(edits)))
	for _, e := range edits {
		sb.WriteString(formatEditForAI(e))
		sb.WriteString("\n\n")
	}

	contents := []*genai.Content{genai.NewContentFromText(sb.String(), genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, c.contentConfig)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini edit analysis failed", "error", err, "peer_id", peerID)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	return c.extractTextFromResponse(ctx, resp)
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	op := "gemini_operation"
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			parts := strings.Split(fn.Name(), ".")
			if len(parts) >= 2 {
				op = parts[len(parts)-1]
			}
		}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "operation", op, "reason", reasonMsg)
		return "", fmt.Errorf("%s blocked by safety filter: %s", op, reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "operation", op, "finish_reason", finishReason)

		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("%s returned no content, finish reason: %s", op, finishReason)
		}

		return "", fmt.Errorf("%s returned empty content", op)
	}

	rawText := resp.Text()

	// The model occasionally echoes the edit-record headers from the
	// prompt; strip any that lead the response.
	re := regexp.MustCompile(`(?m)^(?:\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] message \d+ by UID \S+:\s*)+`)
	cleanText := strings.TrimSpace(re.ReplaceAllString(rawText, ""))

	if cleanText == "" {
		c.log.WarnContext(ctx, "Gemini response text is empty after stripping prefixes", "operation", op, "raw_text", rawText)

		return "", fmt.Errorf("%s returned empty text after processing", op)
	}

	return cleanText, nil
}
