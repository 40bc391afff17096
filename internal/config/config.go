// Package config loads castbridge's runtime configuration from flags and
// environment variables, following the corpus's flag+env override
// pattern (see services/signaling/config in the wider codebase).
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the core and its collaborators need.
type Config struct {
	// MediaServerPort is the tcp4 port the HTTP range server binds; 0
	// lets the OS choose.
	MediaServerPort int
	// AdvertiseIP overrides the detected primary IPv4 address used to
	// build media URLs; empty means auto-detect.
	AdvertiseIP string

	// DiscoveryTimeout bounds one mDNS browse pass.
	DiscoveryTimeout time.Duration
	// DeviceIP/DevicePort connect directly to a known receiver, skipping
	// discovery, when DeviceIP is non-empty.
	DeviceIP   string
	DevicePort int

	// MaxConcurrentTranscodes bounds the transcoder's subprocess pool.
	MaxConcurrentTranscodes int64
	// ScratchDir is the base directory for per-track transcode output.
	ScratchDir string

	LogLevel string
}

// defaultCastPort is the standard Cast receiver TLS port.
const defaultCastPort = 8009

// defaultMediaServerPort is the HTTP range server's default listen port.
const defaultMediaServerPort = 8010

// Load parses flags, then applies environment variable overrides (env
// wins, matching the corpus's config.Load convention).
func Load() *Config {
	cfg := &Config{
		MediaServerPort:         defaultMediaServerPort,
		DiscoveryTimeout:        10 * time.Second,
		MaxConcurrentTranscodes: 2,
		DevicePort:              defaultCastPort,
	}

	flag.IntVar(&cfg.MediaServerPort, "port", cfg.MediaServerPort, "HTTP media server port")
	flag.StringVar(&cfg.AdvertiseIP, "advertise", "", "IPv4 address to advertise in media URLs (auto-detected if not set)")
	flag.DurationVar(&cfg.DiscoveryTimeout, "discovery-timeout", cfg.DiscoveryTimeout, "mDNS discovery browse duration")
	flag.StringVar(&cfg.DeviceIP, "device-ip", "", "connect directly to this receiver IP, skipping discovery")
	flag.IntVar(&cfg.DevicePort, "device-port", cfg.DevicePort, "receiver TLS port")
	flag.Int64Var(&cfg.MaxConcurrentTranscodes, "max-transcodes", cfg.MaxConcurrentTranscodes, "max concurrent transcode subprocesses")
	flag.StringVar(&cfg.ScratchDir, "scratch-dir", os.TempDir(), "base directory for transcoded scratch files")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.MediaServerPort = p
		}
	}
	if v := os.Getenv("ADVERTISE"); v != "" {
		cfg.AdvertiseIP = v
	}
	if v := os.Getenv("DISCOVERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DiscoveryTimeout = d
		}
	}
	if v := os.Getenv("DEVICE_IP"); v != "" {
		cfg.DeviceIP = v
	}
	if v := os.Getenv("DEVICE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.DevicePort = p
		}
	}
	if v := os.Getenv("MAX_TRANSCODES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxConcurrentTranscodes = n
		}
	}
	if v := os.Getenv("SCRATCH_DIR"); v != "" {
		cfg.ScratchDir = v
	}
	if v := os.Getenv("LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
