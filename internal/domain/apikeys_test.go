package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		wantErr  string
	}{
		{ProviderOpenAI, "sk-proj-abc", ""},
		{ProviderGroq, "gsk_abc", ""},
		{ProviderGemini, "AIzaSyabc", ""},
		{ProviderGemini, "", ""},
		{ProviderOpenAI, "gsk_abc", "OpenAI key must start with sk-"},
		{ProviderGroq, "sk-abc", "Groq key must start with gsk_"},
		{ProviderGemini, "aiza", "Gemini key must start with AIza"},
		{"cohere", "abc", "Unknown provider"},
	}

	for _, tt := range tests {
		err := ValidateAPIKey(tt.provider, tt.key)
		if tt.wantErr == "" {
			assert.NoError(t, err, tt.provider+" "+tt.key)
			continue
		}
		assert.Equal(t, EINVALID, ErrorCode(err))
		assert.Equal(t, tt.wantErr, ErrorMessage(err))
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "", MaskAPIKey(""))
	assert.Equal(t, "*******", MaskAPIKey("gsk_abc"))
	assert.Equal(t, "sk-p********wxyz", MaskAPIKey("sk-proj-abcdefwxyz"))
}

func TestUserAPIKeys(t *testing.T) {
	var none *UserAPIKeys
	assert.Equal(t, "", none.Key(ProviderGroq))
	assert.False(t, none.HasAny())

	keys := &UserAPIKeys{Gemini: "AIza123"}
	assert.Equal(t, "AIza123", keys.Key(ProviderGemini))
	assert.Equal(t, "", keys.Key("anthropic"))
	assert.True(t, keys.HasAny())
}
