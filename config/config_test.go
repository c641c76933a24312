package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Configuration {
	return &Configuration{
		CRM:         CRMOptions{BaseURL: "https://crm.example.com"},
		AI:          AIOptions{Provider: ProviderGemini, GeminiAPIKey: "key", GeminiModels: []string{"gemini-2.0-flash"}},
		RateLimit:   RateLimitOptions{Store: "memory"},
		DatabaseDSN: "user:pass@tcp(localhost:3306)/staffable",
		PageSize:    12,
		MaxPageSize: 48,
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("DB_DSN", "user:pass@tcp(localhost:3306)/staffable")
	t.Setenv("CRM_BASE_URL", "https://crm.example.com/api")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("CORS_ORIGINS", "https://app.staffable.test,https://admin.staffable.test")
	t.Setenv("PORT", "9090")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Address())
	assert.Equal(t, "https://crm.example.com/api", c.CRM.BaseURL)
	assert.Equal(t, []string{"https://app.staffable.test", "https://admin.staffable.test"}, c.CORSOrigins)
	assert.Equal(t, ProviderGemini, c.AI.Provider)
	assert.NotEmpty(t, c.AI.GeminiModels)
	assert.Equal(t, 12, c.PageSize)
	assert.NotNil(t, c.Logger())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("CRM_BASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "CRM_BASE_URL")
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Configuration) {}},
		{
			name:    "unknown provider",
			mutate:  func(c *Configuration) { c.AI.Provider = "llama" },
			wantErr: "AI_PROVIDER",
		},
		{
			name:    "vertex without project",
			mutate:  func(c *Configuration) { c.AI.Provider = ProviderVertex },
			wantErr: "VERTEX_PROJECT",
		},
		{
			name:    "openai without key",
			mutate:  func(c *Configuration) { c.AI.Provider = ProviderOpenAI },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "page size above max",
			mutate:  func(c *Configuration) { c.PageSize = 100 },
			wantErr: "MAX_PAGE_SIZE",
		},
		{
			name:    "redis limiter without redis",
			mutate:  func(c *Configuration) { c.RateLimit.Store = "redis" },
			wantErr: "REDIS_URL",
		},
		{
			name:    "unknown limiter store",
			mutate:  func(c *Configuration) { c.RateLimit.Store = "disk" },
			wantErr: "RATE_LIMIT_STORE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogrusLogLevel(t *testing.T) {
	t.Parallel()

	c := &Configuration{}
	for level, want := range map[string]logrus.Level{
		"silent":  logrus.PanicLevel,
		"error":   logrus.ErrorLevel,
		"warn":    logrus.WarnLevel,
		"info":    logrus.InfoLevel,
		"DEBUG":   logrus.DebugLevel,
		"unknown": logrus.InfoLevel,
	} {
		c.LogLevel = level
		assert.Equal(t, want, c.LogrusLogLevel(), level)
	}
}
