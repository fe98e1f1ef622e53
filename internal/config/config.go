package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	TTS       TTSConfig       `yaml:"tts"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// OpenAIConfig 描述上游 OpenAI 接口配置。
// APIKey 允许为空：服务照常启动，在请求时返回配置错误。
type OpenAIConfig struct {
	APIKey              string        `yaml:"api_key"`
	BaseURL             string        `yaml:"base_url"`
	DefaultModel        string        `yaml:"default_model"`
	MaxCompletionTokens int           `yaml:"max_completion_tokens"`
	ReasoningEffort     string        `yaml:"reasoning_effort"`
	Timeout             time.Duration `yaml:"timeout"`
}

// TTSConfig 描述语音合成默认参数。
type TTSConfig struct {
	Model string  `yaml:"model"`
	Voice string  `yaml:"voice"`
	Speed float64 `yaml:"speed"`
}

// RealtimeConfig 描述实时语音会话（客户端）参数。
type RealtimeConfig struct {
	Model              string        `yaml:"model"`
	Voice              string        `yaml:"voice"`
	URL                string        `yaml:"url"`
	TokenEndpoint      string        `yaml:"token_endpoint"`
	TranscriptionModel string        `yaml:"transcription_model"`
	VADThreshold       float64       `yaml:"vad_threshold"`
	PrefixPaddingMS    int           `yaml:"prefix_padding_ms"`
	SilenceDurationMS  int           `yaml:"silence_duration_ms"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
}

// CacheConfig 描述故事/音频缓存。
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory | redis
	MaxEntries    int           `yaml:"max_entries"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// RateLimitConfig 描述按 IP 的限流参数，RPS<=0 表示关闭。
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default 返回内置默认值。
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		OpenAI: OpenAIConfig{
			BaseURL:             "https://api.openai.com/v1",
			DefaultModel:        "gpt-5-nano",
			MaxCompletionTokens: 500,
			ReasoningEffort:     "low",
			Timeout:             120 * time.Second,
		},
		TTS: TTSConfig{
			Model: "tts-1",
			Voice: "alloy",
			Speed: 1.0,
		},
		Realtime: RealtimeConfig{
			Model:              "gpt-realtime-mini",
			Voice:              "alloy",
			URL:                "wss://api.openai.com/v1/realtime",
			TokenEndpoint:      "http://localhost:8080/api/realtime/token",
			TranscriptionModel: "whisper-1",
			VADThreshold:       0.5,
			PrefixPaddingMS:    300,
			SilenceDurationMS:  700,
			ConnectTimeout:     10 * time.Second,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			MaxEntries: 256,
			TTL:        time.Hour,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load 依次应用默认值、可选的 YAML 文件（CONFIG_FILE）和环境变量。
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyServerEnv(&cfg.Server); err != nil {
		return nil, err
	}
	if err := applyOpenAIEnv(&cfg.OpenAI); err != nil {
		return nil, err
	}
	if err := applyTTSEnv(&cfg.TTS); err != nil {
		return nil, err
	}
	if err := applyRealtimeEnv(&cfg.Realtime); err != nil {
		return nil, err
	}
	if err := applyCacheEnv(&cfg.Cache); err != nil {
		return nil, err
	}
	if err := applyRateLimitEnv(&cfg.RateLimit); err != nil {
		return nil, err
	}
	if err := applyLogEnv(&cfg.Log); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围。
func (c Config) Validate() error {
	if c.OpenAI.MaxCompletionTokens <= 0 {
		return fmt.Errorf("openai max_completion_tokens must be positive, got %d", c.OpenAI.MaxCompletionTokens)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache backend redis requires REDIS_ADDR")
	}
	if c.TTS.Speed < 0.25 || c.TTS.Speed > 4.0 {
		return fmt.Errorf("tts speed must be within [0.25, 4.0], got %v", c.TTS.Speed)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyServerEnv 解析服务器监听地址。
func applyServerEnv(s *ServerConfig) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if strings.Contains(port, ":") {
			// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
			s.Addr = port
		} else if strings.Contains(port, " ") {
			return fmt.Errorf("invalid PORT value: %q", port)
		} else {
			s.Addr = ":" + port
		}
	}

	timeout, err := parseOptionalDurationEnv("SHUTDOWN_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		s.ShutdownTimeout = *timeout
	}

	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		s.AllowedOrigins = splitList(origins)
	}
	return nil
}

func applyOpenAIEnv(o *OpenAIConfig) error {
	o.APIKey = getEnvOrDefault("OPENAI_API_KEY", o.APIKey)
	o.BaseURL = strings.TrimRight(getEnvOrDefault("OPENAI_BASE_URL", o.BaseURL), "/")
	o.DefaultModel = getEnvOrDefault("OPENAI_MODEL", o.DefaultModel)
	o.ReasoningEffort = getEnvOrDefault("OPENAI_REASONING_EFFORT", o.ReasoningEffort)

	maxTokens, err := parseOptionalIntEnv("OPENAI_MAX_COMPLETION_TOKENS")
	if err != nil {
		return err
	}
	if maxTokens != nil {
		o.MaxCompletionTokens = *maxTokens
	}

	timeout, err := parseOptionalDurationEnv("OPENAI_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		o.Timeout = *timeout
	}
	return nil
}

func applyTTSEnv(t *TTSConfig) error {
	t.Model = getEnvOrDefault("TTS_MODEL", t.Model)
	t.Voice = getEnvOrDefault("TTS_VOICE", t.Voice)

	speed, err := parseOptionalFloatEnv("TTS_SPEED")
	if err != nil {
		return err
	}
	if speed != nil {
		t.Speed = *speed
	}
	return nil
}

func applyRealtimeEnv(r *RealtimeConfig) error {
	r.Model = getEnvOrDefault("REALTIME_MODEL", r.Model)
	r.Voice = getEnvOrDefault("REALTIME_VOICE", r.Voice)
	r.URL = getEnvOrDefault("REALTIME_URL", r.URL)
	r.TokenEndpoint = getEnvOrDefault("REALTIME_TOKEN_ENDPOINT", r.TokenEndpoint)
	r.TranscriptionModel = getEnvOrDefault("REALTIME_TRANSCRIPTION_MODEL", r.TranscriptionModel)

	threshold, err := parseOptionalFloatEnv("REALTIME_VAD_THRESHOLD")
	if err != nil {
		return err
	}
	if threshold != nil {
		r.VADThreshold = *threshold
	}

	prefix, err := parseOptionalIntEnv("REALTIME_PREFIX_PADDING_MS")
	if err != nil {
		return err
	}
	if prefix != nil {
		r.PrefixPaddingMS = *prefix
	}

	silence, err := parseOptionalIntEnv("REALTIME_SILENCE_DURATION_MS")
	if err != nil {
		return err
	}
	if silence != nil {
		r.SilenceDurationMS = *silence
	}

	timeout, err := parseOptionalDurationEnv("REALTIME_CONNECT_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		r.ConnectTimeout = *timeout
	}
	return nil
}

func applyCacheEnv(c *CacheConfig) error {
	c.Backend = strings.ToLower(getEnvOrDefault("CACHE_BACKEND", c.Backend))
	c.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", c.RedisPassword)

	db, err := parseOptionalIntEnv("REDIS_DB")
	if err != nil {
		return err
	}
	if db != nil {
		c.RedisDB = *db
	}

	maxEntries, err := parseOptionalIntEnv("CACHE_MAX_ENTRIES")
	if err != nil {
		return err
	}
	if maxEntries != nil {
		if *maxEntries < 1 {
			c.MaxEntries = 1
		} else {
			c.MaxEntries = *maxEntries
		}
	}

	ttl, err := parseOptionalDurationEnv("CACHE_TTL")
	if err != nil {
		return err
	}
	if ttl != nil {
		c.TTL = *ttl
	}
	return nil
}

func applyRateLimitEnv(r *RateLimitConfig) error {
	rps, err := parseOptionalFloatEnv("RATE_LIMIT_RPS")
	if err != nil {
		return err
	}
	if rps != nil {
		r.RPS = *rps
	}

	burst, err := parseOptionalIntEnv("RATE_LIMIT_BURST")
	if err != nil {
		return err
	}
	if burst != nil {
		r.Burst = *burst
	}
	return nil
}

func applyLogEnv(l *LogConfig) error {
	l.Level = getEnvOrDefault("LOG_LEVEL", l.Level)
	dev, err := parseBoolEnv("LOG_DEVELOPMENT", l.Development)
	if err != nil {
		return err
	}
	l.Development = dev
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func lookupTrimmed(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	return value, value != ""
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseOptionalDurationEnv 接受 "30s" 形式，纯数字按秒处理。
func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}

	if secs, err := strconv.Atoi(value); err == nil {
		d := time.Duration(secs) * time.Second
		return &d, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &d, nil
}
