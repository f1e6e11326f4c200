package api

import "github.com/FocuswithJustin/colordep/core/palette"

// DefaultMaxBodyBytes caps request bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 4 << 20

// Config holds server configuration.
type Config struct {
	Port              int
	Policy            *palette.Policy // nil = default palette
	MaxBodyBytes      int64           // 0 = DefaultMaxBodyBytes
	RateLimitRequests int             // Requests per minute (0 = disabled)
	RateLimitBurst    int             // Burst size
	AllowedOrigins    []string        // CORS and websocket origins (empty = allow all)
}

// ServerConfig is the active server configuration.
var ServerConfig Config

func (c Config) policy() *palette.Policy {
	if c.Policy == nil {
		return palette.Default()
	}
	return c.Policy
}

func (c Config) maxBody() int64 {
	if c.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

func (c Config) originAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
