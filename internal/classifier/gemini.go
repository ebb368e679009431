package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClassifier asks a Gemini model to categorize a transaction.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed External. It fails without an API key.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w: no API key", ErrUnavailable)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

func (g *GeminiClassifier) Name() string { return "gemini" }

func (g *GeminiClassifier) Classify(ctx context.Context, req ExternalRequest) (ExternalResult, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(req)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return ExternalResult{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return ExternalResult{}, fmt.Errorf("gemini: empty response")
	}
	return parseModelResponse(raw, req.Categories)
}

func buildPrompt(req ExternalRequest) string {
	var b strings.Builder
	b.WriteString("You categorize business bank transactions for double-entry bookkeeping.\n\n")
	fmt.Fprintf(&b, "Transaction:\n- description: %s\n- amount: %s\n- date: %s\n- direction: %s\n\n",
		req.Description, req.Amount.StringFixed(2), req.Date.Format("2006-01-02"), req.Direction)
	b.WriteString("Allowed categories:\n")
	for _, c := range req.Categories {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\nRespond with a single JSON object and nothing else:\n" +
		`{"category": string (one of the allowed categories), "confidence": integer 0-100, ` +
		`"counterparty": string or null, "is_recurring": boolean, ` +
		`"frequency": "weekly"|"monthly"|"quarterly"|"yearly"|null, "reasoning": string, ` +
		`"flags": array of strings, include "ambiguous" if several categories fit equally}` + "\n" +
		"Do NOT wrap the response in code fences.\n")
	return b.String()
}

type modelResponse struct {
	Category     string   `json:"category"`
	Confidence   *int     `json:"confidence"`
	Counterparty *string  `json:"counterparty"`
	IsRecurring  bool     `json:"is_recurring"`
	Frequency    *string  `json:"frequency"`
	Reasoning    string   `json:"reasoning"`
	Flags        []string `json:"flags"`
}

// parseModelResponse decodes the model's JSON. Categories outside the
// allowed list and missing confidences are malformed.
func parseModelResponse(raw string, allowed []string) (ExternalResult, error) {
	var mr modelResponse
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &mr); err != nil {
		return ExternalResult{}, fmt.Errorf("gemini: decoding response: %w", err)
	}
	if mr.Confidence == nil || *mr.Confidence < 0 || *mr.Confidence > 100 {
		return ExternalResult{}, fmt.Errorf("gemini: missing or out-of-range confidence")
	}
	known := false
	for _, c := range allowed {
		if strings.EqualFold(c, mr.Category) {
			mr.Category = c
			known = true
			break
		}
	}
	if !known {
		return ExternalResult{}, fmt.Errorf("gemini: category %q not allowed", mr.Category)
	}

	out := ExternalResult{
		Category:    mr.Category,
		Confidence:  *mr.Confidence,
		IsRecurring: mr.IsRecurring,
		Reasoning:   mr.Reasoning,
		Flags:       mr.Flags,
	}
	if mr.Counterparty != nil {
		out.CounterpartyName = *mr.Counterparty
	}
	if mr.Frequency != nil {
		switch f := model.Frequency(strings.ToLower(*mr.Frequency)); f {
		case model.FrequencyWeekly, model.FrequencyMonthly, model.FrequencyQuarterly, model.FrequencyYearly:
			out.SuggestedFrequency = f
		}
	}
	return out, nil
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
