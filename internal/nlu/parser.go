package nlu

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ledgerchat/internal/ai"
	"ledgerchat/internal/cache"
	"ledgerchat/internal/log"
)

// Chat intents.
const (
	IntentAddExpense  = "add_expense"
	IntentQuery       = "query"
	IntentInsights    = "get_insights"
	IntentSummary     = "get_comprehensive_summary"
	IntentSuggestions = "get_suggestions"
	IntentGreeting    = "greeting"
	IntentClarify     = "clarification_needed"
	IntentUnknown     = "unknown"
)

// Query entity types.
const (
	QuerySearch  = "search"
	QueryHighest = "highest"
	QueryLowest  = "lowest"
	QueryList    = "list"
	QueryTop     = "top"
	QueryTotal   = "total"
)

// Entities carries the slots the model filled for an intent.
type Entities struct {
	Amount      *float64 `json:"amount"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	TimeRange   string   `json:"time_range"`
	QueryType   string   `json:"query_type"`
	Keyword     string   `json:"keyword"`
}

// Result is a parsed user message.
type Result struct {
	Intent   string   `json:"intent"`
	Entities Entities `json:"entities"`
}

// Parser turns free-form chat messages into intents using the AI
// provider. Identical messages within the cache TTL skip the model.
type Parser struct {
	provider ai.Provider
	cache    *cache.LRUCache[Result]
	logger   *log.Logger
}

func NewParser(provider ai.Provider, logger *log.Logger) *Parser {
	return &Parser{
		provider: provider,
		cache:    cache.NewLRUCache[Result](256, 5*time.Minute),
		logger:   logger,
	}
}

// StartJanitor sweeps expired classifications from the cache every
// interval until stop is closed.
func (p *Parser) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	p.cache.StartJanitor(interval, stop)
}

// Parse classifies a message. It never returns an error: when the
// model is unreachable or returns garbage the intent degrades to
// clarification_needed or unknown so the chat flow can continue.
func (p *Parser) Parse(ctx context.Context, message string) Result {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return Result{Intent: IntentClarify}
	}

	if cached, ok := p.cache.Get(normalized); ok {
		return cached
	}

	prompt, err := ai.RenderPrompt(ai.PromptNLU, map[string]any{
		"Message": message,
		"Today":   time.Now().Format("2006-01-02"),
	})
	if err != nil {
		p.logger.Error("render nlu prompt failed", log.FieldError, err)
		return Result{Intent: IntentClarify}
	}

	raw, err := p.provider.Complete(ctx, prompt)
	if err != nil {
		p.logger.Error("nlu completion failed",
			log.FieldProvider, p.provider.Name(),
			log.FieldError, err)
		return Result{Intent: IntentClarify}
	}

	result, ok := decodeResult(raw)
	if !ok {
		p.logger.Warn("nlu output not parseable", log.FieldProvider, p.provider.Name())
		return Result{Intent: IntentUnknown}
	}

	p.cache.Set(normalized, result)
	return result
}

func decodeResult(raw string) (Result, bool) {
	jsonStr, err := ai.ExtractJSON(raw)
	if err != nil {
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		return Result{}, false
	}
	if !validIntent(r.Intent) {
		return Result{Intent: IntentUnknown, Entities: r.Entities}, true
	}
	return r, true
}

func validIntent(intent string) bool {
	switch intent {
	case IntentAddExpense, IntentQuery, IntentInsights, IntentSummary,
		IntentSuggestions, IntentGreeting, IntentClarify, IntentUnknown:
		return true
	}
	return false
}
