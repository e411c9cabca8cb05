package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential marks a feature that cannot run until a key is configured.
var ErrMissingCredential = errors.New("missing credential")

type Config struct {
	ProjectDir   string `json:"project_dir" yaml:"project_dir"`
	ResultsDir   string `json:"results_dir" yaml:"results_dir"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	DataCacheDir string `json:"data_cache_dir" yaml:"data_cache_dir"`
	SettingsPath string `json:"settings_path" yaml:"settings_path"`
	DBPath       string `json:"db_path" yaml:"db_path"`
	ServerAddr   string `json:"server_addr" yaml:"server_addr"`

	LLMProvider      string `json:"llm_provider" yaml:"llm_provider"`
	TranslationModel string `json:"translation_model" yaml:"translation_model"`
	BackendURL       string `json:"backend_url" yaml:"backend_url"`
	Debug            bool   `json:"debug" yaml:"debug"`
	CacheEnabled     bool   `json:"cache_enabled" yaml:"cache_enabled"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled" yaml:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port" yaml:"eino_debug_port"`

	// AI Model API Keys
	OpenAIAPIKey   string `json:"openai_api_key" yaml:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key" yaml:"deepseek_api_key"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key" yaml:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret" yaml:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token" yaml:"longport_access_token"`

	// Alpaca market data
	AlpacaAPIKey    string `json:"alpaca_api_key" yaml:"alpaca_api_key"`
	AlpacaAPISecret string `json:"alpaca_api_secret" yaml:"alpaca_api_secret"`
	AlpacaDataURL   string `json:"alpaca_data_url" yaml:"alpaca_data_url"`

	// News/social data API keys
	NewsAPIKey      string `json:"news_api_key" yaml:"news_api_key"`
	AlphaVantageKey string `json:"alpha_vantage_key" yaml:"alpha_vantage_key"`
	RedditClientID  string `json:"reddit_client_id" yaml:"reddit_client_id"`
	RedditSecret    string `json:"reddit_secret" yaml:"reddit_secret"`
	RedditUserAgent string `json:"reddit_user_agent" yaml:"reddit_user_agent"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot returns defaults rooted at dir without reading the environment.
func DefaultConfigWithRoot(dir string) *Config {
	return &Config{
		ProjectDir:   dir,
		ResultsDir:   filepath.Join(dir, "results"),
		DataDir:      filepath.Join(dir, "data"),
		DataCacheDir: filepath.Join(dir, "data", "cache"),
		SettingsPath: filepath.Join(dir, "dashboard_settings.json"),
		DBPath:       filepath.Join(dir, "data", "dashboard.db"),
		ServerAddr:   ":8501",

		LLMProvider:      "openai",
		TranslationModel: "gpt-4o-mini",
		BackendURL:       "",
		Debug:            false,
		CacheEnabled:     true,

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,

		RedditUserAgent: "TradingAgents-Dashboard/1.0",
	}
}

// LoadFile overlays a YAML config file on top of c. Keys absent from the file keep their value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("SETTINGS_PATH"); val != "" {
		c.SettingsPath = val
	}
	if val := os.Getenv("DASHBOARD_DB"); val != "" {
		c.DBPath = val
	}
	if val := os.Getenv("DASHBOARD_ADDR"); val != "" {
		c.ServerAddr = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("TRANSLATION_MODEL"); val != "" {
		c.TranslationModel = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("TRADINGAGENTS_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("APCA_API_KEY_ID"); val != "" {
		c.AlpacaAPIKey = val
	}
	if val := os.Getenv("APCA_API_SECRET_KEY"); val != "" {
		c.AlpacaAPISecret = val
	}
	if val := os.Getenv("APCA_API_DATA_URL"); val != "" {
		c.AlpacaDataURL = val
	}

	if val := os.Getenv("NEWS_API_KEY"); val != "" {
		c.NewsAPIKey = val
	}
	if val := os.Getenv("ALPHA_VANTAGE_API_KEY"); val != "" {
		c.AlphaVantageKey = val
	}
	if val := os.Getenv("REDDIT_CLIENT_ID"); val != "" {
		c.RedditClientID = val
	}
	if val := os.Getenv("REDDIT_CLIENT_SECRET"); val != "" {
		c.RedditSecret = val
	}
	if val := os.Getenv("REDDIT_USER_AGENT"); val != "" {
		c.RedditUserAgent = val
	}
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ResultsDir) == "" {
		return errors.New("results_dir is required")
	}
	switch c.LLMProvider {
	case "openai", "deepseek":
	default:
		return fmt.Errorf("unsupported llm_provider %q", c.LLMProvider)
	}
	if c.EinoDebugEnabled && (c.EinoDebugPort <= 0 || c.EinoDebugPort > 65535) {
		return fmt.Errorf("invalid eino_debug_port %d", c.EinoDebugPort)
	}
	return nil
}

// LLMAPIKey returns the key for the configured provider.
func (c *Config) LLMAPIKey() (string, error) {
	var key string
	switch c.LLMProvider {
	case "deepseek":
		key = c.DeepSeekAPIKey
	default:
		key = c.OpenAIAPIKey
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: %s API key not set", ErrMissingCredential, c.LLMProvider)
	}
	return key, nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.DataCacheDir, filepath.Dir(c.DBPath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
