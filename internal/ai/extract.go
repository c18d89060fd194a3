package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object in model output")

// ExtractJSON returns the substring between the first '{' and the last
// '}' of the model output. Models often wrap JSON in prose or code
// fences.
func ExtractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return raw[start : end+1], nil
}

// Insights is the normalized result of an insights completion.
type Insights struct {
	TotalSpent    float64           `json:"total_spent"`
	TopCategories []InsightCategory `json:"top_categories"`
	Anomalies     []Anomaly         `json:"anomalies"`
}

type InsightCategory struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type Anomaly struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Reason      string  `json:"reason"`
}

// ParseInsights decodes and normalizes a raw insights completion.
// Models are sloppy with the anomaly list: entries may be objects or
// bare strings, and strings are coerced to an Anomaly carrying the
// text. A top_categories that isn't a list collapses to empty instead
// of discarding the rest of the payload. Output with no usable JSON at
// all yields a zeroed Insights with a system_error anomaly rather than
// an error, so a flaky model never breaks the endpoint.
func ParseInsights(raw string) Insights {
	jsonStr, err := ExtractJSON(raw)
	if err != nil {
		return systemErrorInsights("model output contained no JSON object")
	}

	var payload struct {
		TotalSpent    float64         `json:"total_spent"`
		TopCategories json.RawMessage `json:"top_categories"`
		Anomalies     json.RawMessage `json:"anomalies"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return systemErrorInsights(fmt.Sprintf("invalid JSON: %v", err))
	}
	if payload.TotalSpent < 0 {
		return systemErrorInsights("total_spent must be non-negative")
	}

	ins := Insights{
		TotalSpent:    payload.TotalSpent,
		TopCategories: []InsightCategory{},
		Anomalies:     []Anomaly{},
	}

	if len(payload.TopCategories) > 0 {
		var cats []InsightCategory
		if err := json.Unmarshal(payload.TopCategories, &cats); err == nil && cats != nil {
			ins.TopCategories = cats
		}
	}

	var entries []json.RawMessage
	if len(payload.Anomalies) > 0 {
		// A non-list anomalies value is dropped wholesale.
		_ = json.Unmarshal(payload.Anomalies, &entries)
	}
	for _, entry := range entries {
		var a Anomaly
		if err := json.Unmarshal(entry, &a); err == nil {
			ins.Anomalies = append(ins.Anomalies, a)
			continue
		}
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			ins.Anomalies = append(ins.Anomalies, Anomaly{Description: s})
		}
	}
	return ins
}

func systemErrorInsights(reason string) Insights {
	return Insights{
		TopCategories: []InsightCategory{},
		Anomalies: []Anomaly{{
			Description: "AI response could not be used",
			Category:    "system_error",
			Reason:      reason,
		}},
	}
}

// ReceiptExtraction is the parsed result of a receipt completion.
type ReceiptExtraction struct {
	Merchant string        `json:"merchant"`
	Date     string        `json:"date"`
	Items    []ReceiptItem `json:"items"`
}

type ReceiptItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// ParseReceiptExtraction decodes a receipt completion. Unlike insights,
// a malformed receipt is an error since the worker must know to mark
// the receipt failed.
func ParseReceiptExtraction(raw string) (ReceiptExtraction, error) {
	jsonStr, err := ExtractJSON(raw)
	if err != nil {
		return ReceiptExtraction{}, err
	}
	var re ReceiptExtraction
	if err := json.Unmarshal([]byte(jsonStr), &re); err != nil {
		return ReceiptExtraction{}, fmt.Errorf("decode receipt extraction: %w", err)
	}
	if len(re.Items) == 0 {
		return ReceiptExtraction{}, errors.New("receipt extraction contained no items")
	}
	for i, item := range re.Items {
		if strings.TrimSpace(item.Description) == "" {
			return ReceiptExtraction{}, fmt.Errorf("receipt item %d has no description", i)
		}
		if item.Amount <= 0 {
			return ReceiptExtraction{}, fmt.Errorf("receipt item %d has non-positive amount", i)
		}
	}
	return re, nil
}
