// Package valuation assigns a point value to a new book listing.
package valuation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/observability"

	"google.golang.org/genai"
)

// Point bounds for a valuation.
const (
	MinPoints = 10
	MaxPoints = 100
)

const valuationTimeout = 20 * time.Second

// BookDetails are the listing fields a valuation looks at.
type BookDetails struct {
	Title       string
	Author      string
	Description string
	Condition   models.BookCondition
}

// Valuer prices a listing. Implementations always return a value in [MinPoints, MaxPoints].
type Valuer interface {
	Value(ctx context.Context, book BookDetails) int
}

// FixedValuer returns the same value for every book. Used when no model is configured.
type FixedValuer int

// Value implements Valuer.
func (f FixedValuer) Value(context.Context, BookDetails) int {
	return clamp(int(f))
}

// contentGenerator is the slice of the genai client the valuer needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiValuer scores books with a Gemini model: a spam check first, then a demand and rarity score.
type GeminiValuer struct {
	gen   contentGenerator
	model string
}

// NewGeminiValuer creates a Gemini API client for model.
func NewGeminiValuer(ctx context.Context, apiKey, model string) (*GeminiValuer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiValuer{gen: client.Models, model: model}, nil
}

// Value implements Valuer. Spam scores MinPoints; any model failure falls back to MinPoints.
func (v *GeminiValuer) Value(ctx context.Context, book BookDetails) int {
	ctx, cancel := context.WithTimeout(ctx, valuationTimeout)
	defer cancel()

	spam, err := v.generate(ctx, spamPrompt(book), 0)
	if err != nil {
		// A failed spam check does not block scoring.
		middleware.Logger.WarnContext(ctx, "spam check failed", "title", book.Title, "error", err)
	} else if strings.EqualFold(strings.TrimSpace(spam), "true") {
		observability.ValuationOutcomes.WithLabelValues("spam").Inc()
		return MinPoints
	}

	text, err := v.generate(ctx, scorePrompt(book), 0.2)
	if err != nil {
		observability.ValuationOutcomes.WithLabelValues("fallback").Inc()
		middleware.Logger.WarnContext(ctx, "book valuation failed", "title", book.Title, "error", err)
		return MinPoints
	}

	points, ok := parseScore(text)
	if !ok {
		observability.ValuationOutcomes.WithLabelValues("fallback").Inc()
		return MinPoints
	}
	observability.ValuationOutcomes.WithLabelValues("scored").Inc()
	return points
}

func (v *GeminiValuer) generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{Temperature: &temperature}
	resp, err := v.gen.GenerateContent(ctx, v.model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}
	return collectText(resp), nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

var firstNumber = regexp.MustCompile(`\d+`)

// parseScore takes the first integer in text and clamps it.
func parseScore(text string) (int, bool) {
	match := firstNumber.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return clamp(n), true
}

func clamp(n int) int {
	return min(MaxPoints, max(MinPoints, n))
}

func spamPrompt(book BookDetails) string {
	return fmt.Sprintf(`Analyze if the following book details appear to be spam, fake, or low-quality content.

Book Details:
Title: %s
Author: %s
Description: %s

Spam indicators: random characters or gibberish, nonsensical combinations, very short or
no meaningful description, repeated characters or patterns, inappropriate or unrelated content.

Return ONLY "true" if it is spam or "false" if it is legitimate. No other text.`,
		book.Title, book.Author, book.Description)
}

func scorePrompt(book BookDetails) string {
	condition := "Used condition (moderate value)"
	if book.Condition == models.BookConditionNew {
		condition = "Brand new condition (higher value)"
	}
	return fmt.Sprintf(`Evaluate the following book and assign a point value between %d and %d based on:
1. Demand: how popular or sought-after is this book?
2. Rarity: how rare or hard to find is this book?
3. Condition: %s

Book Details:
Title: %s
Author: %s
Description: %s
Condition: %s

Scoring guidelines:
- Classic or popular books in demand: 60-100 points
- Rare or collectible books: 70-100 points
- New condition adds a 10-20 point bonus
- Common books with low demand: 20-40 points
- Standard books: 30-50 points
- Minimum score is always %d

Return ONLY the number. No text or explanation.`,
		MinPoints, MaxPoints, condition, book.Title, book.Author, book.Description, book.Condition, MinPoints)
}
