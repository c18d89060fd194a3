package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"

	"ledgerchat/internal/cache"
)

//go:embed prompts.toml
var promptsTOML []byte

// Prompt template keys.
const (
	PromptCategorize  = "categorize_expense"
	PromptNLU         = "natural_language_understanding"
	PromptInsights    = "generate_insights"
	PromptSuggestions = "spending_suggestions"
	PromptReceipt     = "extract_receipt"
)

type promptFile struct {
	Prompts map[string]string `toml:"prompts"`
}

var (
	promptsOnce sync.Once
	promptsData map[string]string
	promptsErr  error

	templateCache = cache.NewLRUCache[*template.Template](32, time.Hour)
)

func loadPrompts() (map[string]string, error) {
	promptsOnce.Do(func() {
		var pf promptFile
		if err := toml.Unmarshal(promptsTOML, &pf); err != nil {
			promptsErr = fmt.Errorf("parse prompts: %w", err)
			return
		}
		promptsData = pf.Prompts
	})
	return promptsData, promptsErr
}

// RenderPrompt fills the named prompt template with data. Parsed
// templates are cached across calls.
func RenderPrompt(key string, data any) (string, error) {
	tmpl, ok := templateCache.Get(key)
	if !ok {
		prompts, err := loadPrompts()
		if err != nil {
			return "", err
		}
		raw, ok := prompts[key]
		if !ok {
			return "", fmt.Errorf("unknown prompt key %q", key)
		}
		tmpl, err = template.New(key).Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse prompt %s: %w", key, err)
		}
		templateCache.Set(key, tmpl)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", key, err)
	}
	return buf.String(), nil
}
