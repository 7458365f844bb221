package twitchchat

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kappopher/twitchchat/connection"
	"github.com/kappopher/twitchchat/middleware"
	"github.com/kappopher/twitchchat/pool"
	"github.com/kappopher/twitchchat/ratelimit"
	"github.com/kappopher/twitchchat/transport"
)

// Config is the shared, immutable configuration for a connection or a pool
// of connections, per spec.md §3/§6. Build one with NewConfig and any number
// of Option values.
type Config struct {
	URL      string
	Username string
	Token    string

	CapMembership bool
	CapCommands   bool
	CapTags       bool

	RateLimit     ratelimit.SlowModeLimit
	MaxReconnects int
	ChannelBuffer int
	LineLimit     int

	Logger zerolog.Logger

	// dial overrides the transport dialer. Unset by default, in which case
	// toConnectionConfig dials URL over a real WebSocket; set by
	// WithDialer to substitute an in-memory transport.Fake in tests, the
	// way the teacher's WithChatBotURL substitutes a test IRC URL.
	dial connection.Dialer
}

// Option configures a Config, following the teacher's functional-options
// idiom (helix.ChatBotOption / WithChatBotURL).
type Option func(*Config)

// NewConfig builds a Config for username authenticating with token, applying
// opts over spec.md §6's defaults.
func NewConfig(username, token string, opts ...Option) Config {
	cfg := Config{
		URL:           transport.TwitchWebSocket,
		Username:      username,
		Token:         token,
		CapCommands:   true,
		CapTags:       true,
		RateLimit:     ratelimit.Global(),
		MaxReconnects: 20,
		ChannelBuffer: 20,
		LineLimit:     middleware.DefaultLineLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithURL overrides the WebSocket URL, e.g. to point at a test server.
func WithURL(url string) Option {
	return func(c *Config) { c.URL = url }
}

// WithMembership enables the twitch.tv/membership capability (JOIN/PART/
// NAMES events). Disabled by default per spec.md §6.
func WithMembership(enabled bool) Option {
	return func(c *Config) { c.CapMembership = enabled }
}

// WithCommands toggles the twitch.tv/commands capability. Enabled by
// default per spec.md §6.
func WithCommands(enabled bool) Option {
	return func(c *Config) { c.CapCommands = enabled }
}

// WithTags toggles the twitch.tv/tags capability. Enabled by default per
// spec.md §6.
func WithTags(enabled bool) Option {
	return func(c *Config) { c.CapTags = enabled }
}

// WithRateLimit overrides the default slow-mode limit new channels start
// with, before any USERSTATE-driven override applies.
func WithRateLimit(limit ratelimit.SlowModeLimit) Option {
	return func(c *Config) { c.RateLimit = limit }
}

// WithMaxReconnects overrides spec.md §6's max_reconnects (default 20).
func WithMaxReconnects(n int) Option {
	return func(c *Config) { c.MaxReconnects = n }
}

// WithChannelBuffer overrides spec.md §6's channel_buffer (default 20),
// sizing each connection's submission, inbound event and internal command
// channels. The middleware chain's inter-stage channels have a fixed
// capacity, and pool event subscribers choose their own buffer size.
func WithChannelBuffer(n int) Option {
	return func(c *Config) { c.ChannelBuffer = n }
}

// WithLineLimit overrides the outbound line-splitting threshold L (default
// 500, spec.md §4.E).
func WithLineLimit(n int) Option {
	return func(c *Config) { c.LineLimit = n }
}

// WithLogger attaches a zerolog.Logger that receives recoverable protocol
// and transport warnings (reconnects, parse and classification errors, a
// pool connection's run loop exiting with an error). Silent
// (zerolog.Nop()) by default so the library never writes without the
// embedder opting in.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithDialer substitutes a custom connection.Dialer for the default
// "dial c.URL over a real WebSocket" behavior, for tests that drive the
// facade against an in-memory transport.Fake instead of a live socket.
func WithDialer(dial connection.Dialer) Option {
	return func(c *Config) { c.dial = dial }
}

func (c Config) toConnectionConfig() connection.Config {
	dial := c.dial
	if dial == nil {
		dial = func(ctx context.Context) (connection.Transport, error) {
			return transport.Dial(ctx, c.URL)
		}
	}
	return connection.Config{
		Username:      c.Username,
		Token:         c.Token,
		CapMembership: c.CapMembership,
		CapCommands:   c.CapCommands,
		CapTags:       c.CapTags,
		MaxReconnects: c.MaxReconnects,
		ChannelBuffer: c.ChannelBuffer,
		LineLimit:     c.LineLimit,
		Limiter:       ratelimit.New(c.RateLimit),
		Logger:        c.Logger,
		Dial:          dial,
	}
}

// PoolConfig configures a pool of connections on top of a shared Config, per
// spec.md §3/§6: init_connections, connection_limit, threshold.
type PoolConfig struct {
	InitConnections int
	ConnectionLimit int
	Threshold       int
}

// PoolOption configures a PoolConfig.
type PoolOption func(*PoolConfig)

// NewPoolConfig builds a PoolConfig, applying opts over spec.md §6's
// defaults (mirrored from pool.Config.applyDefaults).
func NewPoolConfig(opts ...PoolOption) PoolConfig {
	cfg := PoolConfig{
		InitConnections: 2,
		ConnectionLimit: 10,
		Threshold:       50,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithInitConnections overrides the pool's startup connection count
// (including the dedicated whisper connection).
func WithInitConnections(n int) PoolOption {
	return func(c *PoolConfig) { c.InitConnections = n }
}

// WithConnectionLimit overrides the pool's hard connection cap.
func WithConnectionLimit(n int) PoolOption {
	return func(c *PoolConfig) { c.ConnectionLimit = n }
}

// WithThreshold overrides the channels-per-connection placement threshold.
func WithThreshold(n int) PoolOption {
	return func(c *PoolConfig) { c.Threshold = n }
}

func (pc PoolConfig) toPoolConfig(cc connection.Config) pool.Config {
	return pool.Config{
		InitConnections: pc.InitConnections,
		ConnectionLimit: pc.ConnectionLimit,
		Threshold:       pc.Threshold,
		ChannelBuffer:   cc.ChannelBuffer,
		Conn:            cc,
		Logger:          cc.Logger,
	}
}
