package types

import "time"

type ProviderID string

const (
	ProviderGoogle     ProviderID = "google"
	ProviderSerper     ProviderID = "serper"
	ProviderBing       ProviderID = "bing"
	ProviderDuckDuckGo ProviderID = "duckduckgo"
	ProviderTavily     ProviderID = "tavily"
	ProviderSearXNG    ProviderID = "searxng"
	ProviderExa        ProviderID = "exa"
)

// Category separates key-authenticated JSON APIs from HTML scrapers.
// Scrapers tolerate more errors because their markup drifts.
type Category string

const (
	CategoryAPI      Category = "api"
	CategoryScraping Category = "scraping"
)

const (
	DefaultAPIMaxErrors      = 3
	DefaultScrapingMaxErrors = 5
	DefaultRequestTimeout    = 20 * time.Second
)

// ProviderConfig represents search provider configuration
type ProviderConfig struct {
	ID      ProviderID `json:"id" yaml:"id" mapstructure:"id"`
	Name    string     `json:"name" yaml:"name" mapstructure:"name"`
	Enabled bool       `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Lower value wins when providers are listed.
	Priority int `json:"priority" yaml:"priority" mapstructure:"priority"`

	// API settings
	APIHost string `json:"api_host" yaml:"api_host" mapstructure:"api_host"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Google Custom Search engine id
	EngineID string `json:"engine_id,omitempty" yaml:"engine_id,omitempty" mapstructure:"engine_id"`

	// SearXNG Basic Auth
	BasicAuthUsername string `json:"basic_auth_username,omitempty" yaml:"basic_auth_username,omitempty" mapstructure:"basic_auth_username"`
	BasicAuthPassword string `json:"basic_auth_password,omitempty" yaml:"basic_auth_password,omitempty" mapstructure:"basic_auth_password"`

	// Optional settings
	Timeout   int `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`          // seconds, default 20
	MaxErrors int `json:"max_errors,omitempty" yaml:"max_errors,omitempty" mapstructure:"max_errors"` // default by category
}

// CategoryOf reports the adapter category of a provider id.
func CategoryOf(id ProviderID) Category {
	switch id {
	case ProviderBing, ProviderDuckDuckGo:
		return CategoryScraping
	default:
		return CategoryAPI
	}
}

// RequiresAPIKey reports whether the provider needs credentials.
func RequiresAPIKey(id ProviderID) bool {
	switch id {
	case ProviderBing, ProviderDuckDuckGo, ProviderSearXNG:
		return false
	default:
		return true
	}
}

// DefaultAPIHost returns the public endpoint used when APIHost is empty.
func DefaultAPIHost(id ProviderID) string {
	switch id {
	case ProviderGoogle:
		return "https://www.googleapis.com/customsearch/v1"
	case ProviderSerper:
		return "https://google.serper.dev/search"
	case ProviderBing:
		return "https://www.bing.com/search"
	case ProviderDuckDuckGo:
		return "https://html.duckduckgo.com/html/"
	case ProviderTavily:
		return "https://api.tavily.com"
	case ProviderExa:
		return "https://api.exa.ai"
	}
	return ""
}

// ApplyDefaults fills zero-valued optional settings.
func (c *ProviderConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = string(c.ID)
	}
	if c.APIHost == "" {
		c.APIHost = DefaultAPIHost(c.ID)
	}
	if c.Timeout <= 0 {
		c.Timeout = int(DefaultRequestTimeout / time.Second)
	}
	if c.MaxErrors <= 0 {
		if CategoryOf(c.ID) == CategoryScraping {
			c.MaxErrors = DefaultScrapingMaxErrors
		} else {
			c.MaxErrors = DefaultAPIMaxErrors
		}
	}
}

// RequestTimeout returns the per-call timeout.
func (c *ProviderConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(c.Timeout) * time.Second
}

// Validate validates the provider configuration
func (c *ProviderConfig) Validate() error {
	if c.ID == "" {
		return ErrInvalidProviderID
	}
	if c.Name == "" {
		return ErrInvalidProviderName
	}
	if c.APIHost == "" {
		return ErrInvalidAPIHost
	}

	switch c.ID {
	case ProviderSearXNG:
		if c.BasicAuthUsername != "" && c.BasicAuthPassword == "" {
			return ErrMissingBasicAuthPassword
		}
	case ProviderGoogle:
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
		if c.EngineID == "" {
			return ErrMissingEngineID
		}
	default:
		if RequiresAPIKey(c.ID) && c.APIKey == "" {
			return ErrMissingAPIKey
		}
	}

	return nil
}
