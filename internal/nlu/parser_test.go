package nlu

import (
	"context"
	"errors"
	"testing"

	"ledgerchat/internal/log"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

func newTestParser(p *fakeProvider) *Parser {
	return NewParser(p, log.New(log.Config{Component: log.ComponentNLU}))
}

func TestParse_AddExpense(t *testing.T) {
	p := &fakeProvider{response: `{
		"intent": "add_expense",
		"entities": {"amount": 12.5, "description": "lunch", "category": "Food"}
	}`}
	parser := newTestParser(p)

	got := parser.Parse(context.Background(), "I spent 12.50 on lunch")
	if got.Intent != IntentAddExpense {
		t.Fatalf("intent = %s, want add_expense", got.Intent)
	}
	if got.Entities.Amount == nil || *got.Entities.Amount != 12.5 {
		t.Errorf("amount = %v, want 12.5", got.Entities.Amount)
	}
	if got.Entities.Description != "lunch" {
		t.Errorf("description = %s, want lunch", got.Entities.Description)
	}
}

func TestParse_EmptyMessage(t *testing.T) {
	p := &fakeProvider{}
	parser := newTestParser(p)

	got := parser.Parse(context.Background(), "   ")
	if got.Intent != IntentClarify {
		t.Errorf("intent = %s, want clarification_needed", got.Intent)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times for empty message, want 0", p.calls)
	}
}

func TestParse_ProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	parser := newTestParser(p)

	got := parser.Parse(context.Background(), "how much did I spend?")
	if got.Intent != IntentClarify {
		t.Errorf("intent = %s, want clarification_needed", got.Intent)
	}
}

func TestParse_GarbageOutput(t *testing.T) {
	p := &fakeProvider{response: "I'm sorry, I don't understand."}
	parser := newTestParser(p)

	got := parser.Parse(context.Background(), "blargh")
	if got.Intent != IntentUnknown {
		t.Errorf("intent = %s, want unknown", got.Intent)
	}
}

func TestParse_InvalidIntentDegrades(t *testing.T) {
	p := &fakeProvider{response: `{"intent": "launch_missiles", "entities": {}}`}
	parser := newTestParser(p)

	got := parser.Parse(context.Background(), "do something weird")
	if got.Intent != IntentUnknown {
		t.Errorf("intent = %s, want unknown", got.Intent)
	}
}

func TestParse_CachesRepeatMessages(t *testing.T) {
	p := &fakeProvider{response: `{"intent": "greeting", "entities": {}}`}
	parser := newTestParser(p)

	parser.Parse(context.Background(), "Hello!")
	parser.Parse(context.Background(), "hello!")
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 (second hit cached)", p.calls)
	}
}
