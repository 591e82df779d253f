package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	MaxBodyBytes     int64
	AllowedOrigins   []string
	DefaultLocale    string
	GeoIPDBPath      string

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	ImageProvider       string
	FallbackProvider    string
	ProviderTimeout     time.Duration
	ProviderRatePerMin  int
	UploadEndpoint      string
	PollinationsToken   string
	PollinationsModel   string
	CloudflareAccountID string
	CloudflareAPIToken  string
	CloudflareModel     string
	FalKey              string
	FalModel            string
	ReplicateAPIToken   string
	ReplicateModel      string
	HuggingFaceAPIToken string
	HuggingFaceModel    string
	DashScopeAPIKey     string
	DashScopeBaseURL    string
	DashScopeModel      string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIModel         string

	CropBaseSize       int
	CropMultiple       int
	DownloadScale      int
	SessionTTL         time.Duration
	StyleTemplatesPath string
}

// KnownProviders lists the provider names accepted by IMAGE_PROVIDER.
var KnownProviders = []string{
	"pollinations",
	"cloudflare",
	"fal",
	"replicate",
	"huggingface",
	"dashscope",
	"openai",
	"echo",
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		MaxBodyBytes:     int64(getEnvInt("MAX_BODY_BYTES", 20<<20)),
		AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "pt"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),

		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),

		ImageProvider:       strings.ToLower(getEnv("IMAGE_PROVIDER", "pollinations")),
		FallbackProvider:    strings.ToLower(os.Getenv("IMAGE_FALLBACK_PROVIDER")),
		ProviderTimeout:     time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120)),
		ProviderRatePerMin:  getEnvInt("PROVIDER_RATE_PER_MINUTE", 0),
		UploadEndpoint:      getEnv("UPLOAD_ENDPOINT", "https://catbox.moe/user/api.php"),
		PollinationsToken:   os.Getenv("POLLINATIONS_API_TOKEN"),
		PollinationsModel:   getEnv("POLLINATIONS_MODEL", "turbo"),
		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		CloudflareAPIToken:  os.Getenv("CLOUDFLARE_API_TOKEN"),
		CloudflareModel:     getEnv("CLOUDFLARE_MODEL", "@cf/runwayml/stable-diffusion-v1-5-img2img"),
		FalKey:              os.Getenv("FAL_KEY"),
		FalModel:            getEnv("FAL_MODEL", "fal-ai/flux/dev/image-to-image"),
		ReplicateAPIToken:   os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateModel:      getEnv("REPLICATE_MODEL", "stability-ai/sdxl"),
		HuggingFaceAPIToken: os.Getenv("HUGGINGFACE_API_TOKEN"),
		HuggingFaceModel:    getEnv("HUGGINGFACE_MODEL", "timbrooks/instruct-pix2pix"),
		DashScopeAPIKey:     os.Getenv("DASHSCOPE_API_KEY"),
		DashScopeBaseURL:    getEnv("DASHSCOPE_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		DashScopeModel:      getEnv("DASHSCOPE_MODEL", "qwen-image-edit"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:         getEnv("OPENAI_MODEL", "dall-e-2"),

		CropBaseSize:       getEnvInt("CROP_BASE_SIZE", 512),
		CropMultiple:       getEnvInt("CROP_MULTIPLE", 64),
		DownloadScale:      getEnvInt("DOWNLOAD_SCALE", 2),
		SessionTTL:         time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)),
		StyleTemplatesPath: os.Getenv("STYLE_TEMPLATES_PATH"),
	}

	if !isKnownProvider(cfg.ImageProvider) {
		return nil, fmt.Errorf("IMAGE_PROVIDER %q is not supported", cfg.ImageProvider)
	}
	if cfg.FallbackProvider != "" {
		if !isKnownProvider(cfg.FallbackProvider) {
			return nil, fmt.Errorf("IMAGE_FALLBACK_PROVIDER %q is not supported", cfg.FallbackProvider)
		}
		if cfg.FallbackProvider == cfg.ImageProvider {
			return nil, fmt.Errorf("IMAGE_FALLBACK_PROVIDER must differ from IMAGE_PROVIDER")
		}
	}
	if cfg.CropBaseSize < 64 {
		return nil, fmt.Errorf("CROP_BASE_SIZE must be at least 64")
	}
	if cfg.CropMultiple <= 0 || cfg.CropMultiple > cfg.CropBaseSize {
		return nil, fmt.Errorf("CROP_MULTIPLE must be between 1 and CROP_BASE_SIZE")
	}
	if cfg.DownloadScale < 1 {
		cfg.DownloadScale = 1
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func isKnownProvider(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
