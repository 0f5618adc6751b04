// Package openai provides the chat-completions backed recommendation
// fetcher. The model is forced into strict JSON output and the response is
// sanitized into exactly five cards.
package openai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rekomendr/rekomendr/internal/infrastructure/config"
	"github.com/rekomendr/rekomendr/internal/ports/outbound"
	apperrors "github.com/rekomendr/rekomendr/pkg/errors"
	"go.uber.org/zap"
)

const systemPrompt = `You are Rekomendr, a concise tastemaker. Your job: return five high-confidence recommendations that feel personal and useful.

STYLE RULES
- Keep it short and human: one punchy sentence per item (max ~22 words).
- Sound like a friend with taste, not a robot or a critic.
- Avoid spoilers. Prefer vibes, cast, premise, or why it fits the request.
- Prefer recent when the user hints "newer"; otherwise mix timeless + modern.
- Don't repeat titles or give obvious top-10 lists unless the query asks for "popular".
- If the query is vague, infer a coherent theme and commit.

OUTPUT FORMAT (STRICT)
- Return pure JSON only: { "items": [ { "id": "slug", "title": "Title", "summary": "..." } ] }
- Exactly 5 items.
- id: URL-safe slug from the title (lowercase, dashes).
- No prose outside the JSON.`

// Client implements outbound.RecommendationService against an
// OpenAI-compatible chat completions API.
type Client struct {
	cfg    config.AIConfig
	client *http.Client
	cache  outbound.CacheRepository
	logger *zap.Logger
}

// NewClient creates a new completion client. cache may be nil to disable
// response memoization.
func NewClient(cfg config.AIConfig, cache outbound.CacheRepository, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		cache:  cache,
		logger: logger,
	}
}

// Chat completions API structures
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Recommend fetches five cards for the prompt, serving from cache when an
// identical request was answered recently.
func (c *Client) Recommend(ctx context.Context, req outbound.RecommendationRequest) (*outbound.RecommendationSet, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.NewAppError(apperrors.CodeMissingPrompt, "Missing prompt", "")
	}

	key := cacheKey(req)
	if c.cache != nil && c.cfg.EnableCache {
		if data, err := c.cache.Get(ctx, key); err == nil && len(data) > 0 {
			var cached outbound.RecommendationSet
			if json.Unmarshal(data, &cached) == nil && len(cached.Items) == 5 {
				return &cached, nil
			}
		}
	}

	content, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	set, err := parseRecommendations(content)
	if err != nil {
		c.logger.Error("unparseable model output", zap.Error(err))
		return nil, apperrors.NewBadModelOutputError(err)
	}

	if c.cache != nil && c.cfg.EnableCache {
		if data, err := json.Marshal(set); err == nil {
			ttl := c.cfg.CacheTTL
			if ttl <= 0 {
				ttl = 10 * time.Minute
			}
			if err := c.cache.Set(ctx, key, data, ttl); err != nil {
				c.logger.Debug("recommendation cache write failed", zap.Error(err))
			}
		}
	}

	return set, nil
}

func (c *Client) complete(ctx context.Context, req outbound.RecommendationRequest) (string, error) {
	body := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", apperrors.NewExternalServiceError("completion API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", apperrors.NewExternalServiceError("completion API",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(detail)))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", apperrors.NewBadModelOutputError(err)
	}
	if len(completion.Choices) == 0 {
		return "", apperrors.NewBadModelOutputError(fmt.Errorf("no choices returned"))
	}
	return completion.Choices[0].Message.Content, nil
}

// userPrompt shapes the request the way the product's prompt template does.
func userPrompt(req outbound.RecommendationRequest) string {
	orNA := func(parts []string) string {
		if len(parts) == 0 {
			return "n/a"
		}
		return strings.Join(parts, ", ")
	}
	category := req.Category
	if category == "" {
		category = "unknown"
	}
	return strings.TrimSpace(fmt.Sprintf(`USER REQUEST:
%s

CONTEXT HINTS (optional):
%s

CATEGORY (optional): %s

REFINERS (optional): %s

GOAL:
Return 5 items that the user is likely to love. Keep each summary crisp and specific (why this fits). Output STRICT JSON as per the schema.`,
		req.Prompt, orNA(req.Hints), category, orNA(req.Refiners)))
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// slugify normalizes a model-provided id into a URL-safe slug.
func slugify(s string) string {
	s = slugCleaner.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// parseRecommendations validates the strict five-item contract.
func parseRecommendations(content string) (*outbound.RecommendationSet, error) {
	var raw outbound.RecommendationSet
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, err
	}

	items := make([]outbound.Recommendation, 0, 5)
	for _, it := range raw.Items {
		if len(items) == 5 {
			break
		}
		rec := outbound.Recommendation{
			ID:      slugify(it.ID),
			Title:   strings.TrimSpace(it.Title),
			Summary: strings.TrimSpace(it.Summary),
		}
		if rec.ID == "" && rec.Title != "" {
			rec.ID = slugify(rec.Title)
		}
		if rec.ID == "" || rec.Title == "" || rec.Summary == "" {
			continue
		}
		items = append(items, rec)
	}
	if len(items) != 5 {
		return nil, fmt.Errorf("expected 5 items, got %d", len(items))
	}
	return &outbound.RecommendationSet{Items: items}, nil
}

func cacheKey(req outbound.RecommendationRequest) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(req)
	return "recs:" + hex.EncodeToString(h.Sum(nil))[:32]
}
