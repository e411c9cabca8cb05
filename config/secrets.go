package config

import "os"

// SecretStore resolves API credentials by name (see the Key* constants).
type SecretStore interface {
	Secret(name string) (string, bool)
}

// EnvSecrets reads secrets from environment variables.
type EnvSecrets map[string]string

// DefaultEnvSecrets maps secret names to the environment variables that carry them.
func DefaultEnvSecrets() EnvSecrets {
	return EnvSecrets{
		KeyAlphaVantage:       "ALPHA_VANTAGE_API_KEY",
		KeyNewsAPI:            "NEWS_API_KEY",
		KeyRedditClientID:     "REDDIT_CLIENT_ID",
		KeyRedditClientSecret: "REDDIT_CLIENT_SECRET",
		KeyRedditUserAgent:    "REDDIT_USER_AGENT",
	}
}

func (e EnvSecrets) Secret(name string) (string, bool) {
	env, ok := e[name]
	if !ok {
		return "", false
	}
	v := os.Getenv(env)
	return v, v != ""
}

// ChainSecrets returns the first non-empty value in order.
type ChainSecrets []SecretStore

func (c ChainSecrets) Secret(name string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Secret(name); ok {
			return v, true
		}
	}
	return "", false
}

// StaticSecrets is a fixed map, handy for tests and one-off commands.
type StaticSecrets map[string]string

func (s StaticSecrets) Secret(name string) (string, bool) {
	v, ok := s[name]
	return v, ok && v != ""
}

// SecretOr returns the secret or fallback when it is missing.
func SecretOr(store SecretStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	if v, ok := store.Secret(name); ok {
		return v
	}
	return fallback
}

// Secrets exposes the credentials loaded into c from .env and the environment.
func (c *Config) Secrets() StaticSecrets {
	return StaticSecrets{
		KeyAlphaVantage:       c.AlphaVantageKey,
		KeyNewsAPI:            c.NewsAPIKey,
		KeyRedditClientID:     c.RedditClientID,
		KeyRedditClientSecret: c.RedditSecret,
		KeyRedditUserAgent:    c.RedditUserAgent,
	}
}
