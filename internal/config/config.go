package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	WebDir            string        `mapstructure:"web_dir" yaml:"web_dir"`

	// Presence. Clients heartbeat every ~15s; a DJ is reported offline after
	// StaleWindow without one. The sweep evicts rooms whose DJ has been gone
	// for EvictAfter; SweepInterval of 0 disables the sweep.
	StaleWindow   time.Duration `mapstructure:"stale_window" yaml:"stale_window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	EvictAfter    time.Duration `mapstructure:"evict_after" yaml:"evict_after"`

	// Per-connection inbound message budget per minute. 0 disables limiting.
	SignalRateLimit int `mapstructure:"signal_rate_limit" yaml:"signal_rate_limit"`

	// LiveKit media relay. Token minting fails loudly when unset.
	LiveKitURL       string `mapstructure:"livekit_url" yaml:"livekit_url"`
	LiveKitAPIKey    string `mapstructure:"livekit_api_key" yaml:"livekit_api_key"`
	LiveKitAPISecret string `mapstructure:"livekit_api_secret" yaml:"livekit_api_secret"`

	// Optional TURN servers advertised on /config alongside the STUN defaults.
	TURNURLs       string `mapstructure:"turn_urls" yaml:"turn_urls"`
	TURNUsername   string `mapstructure:"turn_username" yaml:"turn_username"`
	TURNCredential string `mapstructure:"turn_credential" yaml:"turn_credential"`

	// Shared playback cadence. Frame size is derived from these three.
	FrameDuration time.Duration `mapstructure:"frame_duration" yaml:"frame_duration"`
	SampleRate    int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels      int           `mapstructure:"channels" yaml:"channels"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		WriteTimeout:      5 * time.Second,
		LogLevel:          "info",
		StaleWindow:       35 * time.Second,
		SweepInterval:     time.Minute,
		EvictAfter:        5 * time.Minute,
		SignalRateLimit:   600,
		FrameDuration:     20 * time.Millisecond,
		SampleRate:        48000,
		Channels:          2,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.WebDir != "" {
		c.WebDir = other.WebDir
	}
	if other.StaleWindow != 0 {
		c.StaleWindow = other.StaleWindow
	}
	if other.SweepInterval != 0 {
		c.SweepInterval = other.SweepInterval
	}
	if other.EvictAfter != 0 {
		c.EvictAfter = other.EvictAfter
	}
	if other.SignalRateLimit != 0 {
		c.SignalRateLimit = other.SignalRateLimit
	}
	if other.LiveKitURL != "" {
		c.LiveKitURL = other.LiveKitURL
	}
	if other.LiveKitAPIKey != "" {
		c.LiveKitAPIKey = other.LiveKitAPIKey
	}
	if other.LiveKitAPISecret != "" {
		c.LiveKitAPISecret = other.LiveKitAPISecret
	}
	if other.TURNURLs != "" {
		c.TURNURLs = other.TURNURLs
	}
	if other.TURNUsername != "" {
		c.TURNUsername = other.TURNUsername
	}
	if other.TURNCredential != "" {
		c.TURNCredential = other.TURNCredential
	}
	if other.FrameDuration != 0 {
		c.FrameDuration = other.FrameDuration
	}
	if other.SampleRate != 0 {
		c.SampleRate = other.SampleRate
	}
	if other.Channels != 0 {
		c.Channels = other.Channels
	}
}
