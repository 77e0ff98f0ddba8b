package llm

import "os"

// Config is the provider configuration read from the environment.
type Config struct {
	APIKey        string
	Model         string
	ThinkingLevel string
}

// HasKey reports whether live mode can run at all.
func (c Config) HasKey() bool { return c.APIKey != "" }

// ConfigFromEnv reads GEMINI_API_KEY, GEMINI_MODEL and THINKING_LEVEL.
func ConfigFromEnv() Config {
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = DefaultModel
	}
	level := os.Getenv("THINKING_LEVEL")
	if level != "medium" && level != "high" {
		level = "medium"
	}
	return Config{
		APIKey:        os.Getenv("GEMINI_API_KEY"),
		Model:         model,
		ThinkingLevel: level,
	}
}
