package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Providers a user can bring their own key for.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// UserKeyProviders lists the providers in UserAPIKeys, in display order.
var UserKeyProviders = []string{ProviderGroq, ProviderOpenAI, ProviderGemini}

var apiKeyRules = map[string]struct{ label, prefix string }{
	ProviderOpenAI: {"OpenAI", "sk-"},
	ProviderGroq:   {"Groq", "gsk_"},
	ProviderGemini: {"Gemini", "AIza"},
}

// UserAPIKeys are a user's own provider keys. An empty key means the
// server key is used for that provider.
type UserAPIKeys struct {
	UserID    uuid.UUID
	OpenAI    string
	Groq      string
	Gemini    string
	UpdatedAt time.Time
}

// Key returns the user's key for provider, or "" if they have none.
func (k *UserAPIKeys) Key(provider string) string {
	if k == nil {
		return ""
	}
	switch provider {
	case ProviderOpenAI:
		return k.OpenAI
	case ProviderGroq:
		return k.Groq
	case ProviderGemini:
		return k.Gemini
	}
	return ""
}

// HasAny reports whether at least one key is set.
func (k *UserAPIKeys) HasAny() bool {
	for _, p := range UserKeyProviders {
		if k.Key(p) != "" {
			return true
		}
	}
	return false
}

// SaveAPIKeysParams updates a user's keys. A nil field is left unchanged;
// an empty string removes the key.
type SaveAPIKeysParams struct {
	OpenAI *string
	Groq   *string
	Gemini *string
}

// ValidateAPIKey checks the key prefix each provider issues. An empty key
// is always valid.
func ValidateAPIKey(provider, key string) error {
	rule, ok := apiKeyRules[provider]
	if !ok {
		return Invalid("", "Unknown provider")
	}
	if key == "" || strings.HasPrefix(key, rule.prefix) {
		return nil
	}
	return Invalid("", rule.label+" key must start with "+rule.prefix)
}

// MaskAPIKey hides all but the first and last four characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 8) + key[len(key)-4:]
}
