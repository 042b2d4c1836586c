package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	toml "github.com/pelletier/go-toml/v2"
)

// Analysis modes select who talks to the generative provider.
const (
	AnalysisModeServer   = "server"
	AnalysisModeProvider = "provider"
)

// Config captures everything smashtrack needs to reach the backend and the
// analysis provider.
type Config struct {
	APIBase          string        `koanf:"api_base"`
	TokenPath        string        `koanf:"token_path"`
	LogPath          string        `koanf:"log_path"`
	LogLevel         string        `koanf:"log_level"`
	RequestTimeout   time.Duration `koanf:"request_timeout"`
	RateLimitRPS     float64       `koanf:"rate_limit_rps"`
	RateLimitBurst   int           `koanf:"rate_limit_burst"`
	AnalysisMode     string        `koanf:"analysis_mode"`
	ProviderEndpoint string        `koanf:"provider_endpoint"`
	ProviderModel    string        `koanf:"provider_model"`
	ProviderAPIKey   string        `koanf:"provider_api_key"`
	MaxUploadMB      int           `koanf:"max_upload_mb"`
	MaxClipSeconds   float64       `koanf:"max_clip_seconds"`
	HistoryPoll      time.Duration `koanf:"history_poll"`
	MetricsPath      string        `koanf:"metrics_path"`
	Theme            string        `koanf:"theme"`
}

const (
	envPrefix         = "SMASHTRACK_"
	defaultConfigPath = "~/.config/smashtrack/config.toml"
	defaultTokenPath  = "~/.config/smashtrack/credential.toml"
	defaultLogPath    = "~/.local/share/smashtrack/smashtrack.log"
	defaultAPIBase    = "http://127.0.0.1:8000/api"
	defaultProvider   = "https://generativelanguage.googleapis.com"
	defaultModel      = "gemini-2.5-flash"
	defaultTheme      = "Court"
)

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		APIBase:          defaultAPIBase,
		TokenPath:        defaultTokenPath,
		LogPath:          defaultLogPath,
		LogLevel:         "info",
		RequestTimeout:   2 * time.Minute,
		RateLimitRPS:     5,
		RateLimitBurst:   5,
		AnalysisMode:     AnalysisModeServer,
		ProviderEndpoint: defaultProvider,
		ProviderModel:    defaultModel,
		MaxUploadMB:      50,
		MaxClipSeconds:   10,
		HistoryPoll:      30 * time.Second,
		Theme:            defaultTheme,
	}
}

// Load layers defaults, the config file (TOML or YAML) and SMASHTRACK_*
// environment variables, in that order of precedence.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	k := koanf.New(".")

	if _, err := os.Stat(resolved); err == nil {
		if err := k.Load(file.Provider(resolved), parserFor(resolved)); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	def := Default()

	c.APIBase = strings.TrimSpace(c.APIBase)
	if c.APIBase == "" {
		c.APIBase = def.APIBase
	}
	c.ProviderEndpoint = strings.TrimSpace(c.ProviderEndpoint)
	if c.ProviderEndpoint == "" {
		c.ProviderEndpoint = def.ProviderEndpoint
	}
	c.ProviderModel = strings.TrimSpace(c.ProviderModel)
	if c.ProviderModel == "" {
		c.ProviderModel = def.ProviderModel
	}
	c.ProviderAPIKey = strings.TrimSpace(c.ProviderAPIKey)

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if strings.TrimSpace(c.Theme) == "" {
		c.Theme = def.Theme
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = def.RateLimitRPS
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = def.RateLimitBurst
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = def.MaxUploadMB
	}
	if c.MaxClipSeconds <= 0 {
		c.MaxClipSeconds = def.MaxClipSeconds
	}
	if c.HistoryPoll <= 0 {
		c.HistoryPoll = def.HistoryPoll
	}

	c.AnalysisMode = strings.ToLower(strings.TrimSpace(c.AnalysisMode))
	switch c.AnalysisMode {
	case "":
		c.AnalysisMode = def.AnalysisMode
	case AnalysisModeServer, AnalysisModeProvider:
	default:
		return fmt.Errorf("analysis_mode %q: want %q or %q", c.AnalysisMode, AnalysisModeServer, AnalysisModeProvider)
	}

	c.TokenPath = expandOr(c.TokenPath, defaultTokenPath)
	c.LogPath = expandOr(c.LogPath, defaultLogPath)
	if strings.TrimSpace(c.MetricsPath) != "" {
		c.MetricsPath = mustExpand(c.MetricsPath)
	}
	return nil
}

// MaxUploadBytes converts the configured upload cap to bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// MaxClip returns the longest trim window the backend accepts.
func (c Config) MaxClip() time.Duration {
	return time.Duration(c.MaxClipSeconds * float64(time.Second))
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return tomlParser{}
	}
}

// tomlParser adapts go-toml to koanf's Parser interface.
type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(m map[string]any) ([]byte, error) {
	return toml.Marshal(m)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandOr(path, fallback string) string {
	if strings.TrimSpace(path) == "" {
		return mustExpand(fallback)
	}
	return mustExpand(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
