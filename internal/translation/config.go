package translation

const (
	DefaultTargetLanguage = "pt-BR"
	DefaultModel          = "gpt-4o-mini"
	DefaultTemperature    = 0.3
	DefaultMaxTokens      = 4000
)

const defaultSystemPrompt = `You are a professional translator specializing in financial and trading documents.
Translate the following text from English to Brazilian Portuguese (pt-BR).

IMPORTANT INSTRUCTIONS:
1. Preserve ALL markdown formatting (headers, lists, bold, italic, tables, etc.)
2. Keep technical terms accurate and use standard Brazilian Portuguese financial terminology
3. Maintain the professional and analytical tone
4. Do NOT translate:
   - Stock tickers (e.g., ITSA4.SA, NVDA)
   - Technical indicator names (MACD, RSI, SMA, ATR, etc.)
   - Dates and numbers
   - Company names (keep original)
5. Translate naturally, avoiding literal translations that sound awkward in Portuguese
6. Use financial terminology common in Brazil (e.g., "ação" not "estoque", "lucro" not "ganho")

Return ONLY the translated text, maintaining the exact same structure.`

// defaultUserTemplate is an eino FString template; {content} is the report text.
const defaultUserTemplate = "Translate this financial report to Brazilian Portuguese:\n\n{content}"

type Config struct {
	TargetLanguage string  `json:"target_language" yaml:"target_language"`
	Model          string  `json:"model" yaml:"model"`
	Temperature    float32 `json:"temperature" yaml:"temperature"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	SystemPrompt   string  `json:"system_prompt" yaml:"system_prompt"`
	UserTemplate   string  `json:"user_template" yaml:"user_template"`
}

func DefaultConfig() Config {
	return Config{
		TargetLanguage: DefaultTargetLanguage,
		Model:          DefaultModel,
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
		SystemPrompt:   defaultSystemPrompt,
		UserTemplate:   defaultUserTemplate,
	}
}

// withDefaults fills empty fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetLanguage == "" {
		c.TargetLanguage = d.TargetLanguage
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	if c.UserTemplate == "" {
		c.UserTemplate = d.UserTemplate
	}
	return c
}

// Suffix is the file-name marker of translated output, e.g. "_pt-BR".
func (c Config) Suffix() string {
	return "_" + c.TargetLanguage
}
