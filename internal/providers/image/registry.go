package image

import (
	"fmt"
	"net/http"
	"time"

	"caricagen/internal/infra"
	"caricagen/internal/providers/upload"
)

// Deps carries what adapters share across providers.
type Deps struct {
	Config     *infra.Config
	Uploader   upload.Uploader
	HTTPClient *http.Client
	Logger     *infra.Logger
}

func (d Deps) uploader() upload.Uploader {
	if d.Uploader != nil {
		return d.Uploader
	}
	catbox := upload.NewCatbox(upload.CatboxOptions{
		Endpoint:       d.Config.UploadEndpoint,
		HTTPClient:     d.HTTPClient,
		RequestTimeout: d.Config.ProviderTimeout,
	})
	return upload.NewCached(catbox, time.Hour)
}

// New builds the named provider from configuration.
func New(name string, deps Deps) (Transformer, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("image provider: config is required")
	}
	timeout := cfg.ProviderTimeout
	switch name {
	case "pollinations":
		return NewPollinations(PollinationsOptions{
			Model:      cfg.PollinationsModel,
			Token:      cfg.PollinationsToken,
			Uploader:   deps.uploader(),
			HTTPClient: deps.HTTPClient,
			Timeout:    timeout,
		})
	case "cloudflare":
		return NewCloudflare(CloudflareOptions{
			AccountID:  cfg.CloudflareAccountID,
			APIToken:   cfg.CloudflareAPIToken,
			Model:      cfg.CloudflareModel,
			HTTPClient: deps.HTTPClient,
			Timeout:    timeout,
		})
	case "fal":
		return NewFal(FalOptions{
			APIKey:     cfg.FalKey,
			Model:      cfg.FalModel,
			HTTPClient: deps.HTTPClient,
			Timeout:    timeout,
		})
	case "replicate":
		return NewReplicate(ReplicateOptions{
			APIToken:   cfg.ReplicateAPIToken,
			Model:      cfg.ReplicateModel,
			HTTPClient: deps.HTTPClient,
			Timeout:    timeout,
		})
	case "huggingface":
		return NewHuggingFace(HuggingFaceOptions{
			APIToken:   cfg.HuggingFaceAPIToken,
			Model:      cfg.HuggingFaceModel,
			HTTPClient: deps.HTTPClient,
			Timeout:    timeout,
		})
	case "dashscope":
		return NewDashScope(DashScopeOptions{
			APIKey:     cfg.DashScopeAPIKey,
			BaseURL:    cfg.DashScopeBaseURL,
			Model:      cfg.DashScopeModel,
			HTTPClient: deps.HTTPClient,
			Logger:     deps.Logger,
			Timeout:    timeout,
		})
	case "openai":
		return NewOpenAI(OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			HTTPClient: deps.HTTPClient,
			Timeout:    timeout,
		})
	case "echo":
		return &Echo{}, nil
	default:
		return nil, fmt.Errorf("image provider: unknown provider %q", name)
	}
}

// NewFromConfig builds IMAGE_PROVIDER, wraps it with IMAGE_FALLBACK_PROVIDER
// when set and throttles the result to PROVIDER_RATE_PER_MINUTE.
func NewFromConfig(deps Deps) (Transformer, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("image provider: config is required")
	}
	if deps.Uploader == nil {
		deps.Uploader = deps.uploader()
	}
	primary, err := New(cfg.ImageProvider, deps)
	if cfg.FallbackProvider == "" {
		if err != nil {
			return nil, err
		}
		return NewThrottled(primary, cfg.ProviderRatePerMin), nil
	}
	secondary, fbErr := New(cfg.FallbackProvider, deps)
	switch {
	case err != nil && fbErr != nil:
		return nil, fmt.Errorf("image provider: %w; fallback: %v", err, fbErr)
	case err != nil:
		if deps.Logger != nil {
			deps.Logger.Warn().Err(err).Str("provider", cfg.ImageProvider).Msg("primary image provider unavailable, using fallback only")
		}
		return NewThrottled(secondary, cfg.ProviderRatePerMin), nil
	case fbErr != nil:
		if deps.Logger != nil {
			deps.Logger.Warn().Err(fbErr).Str("provider", cfg.FallbackProvider).Msg("fallback image provider unavailable")
		}
		return NewThrottled(primary, cfg.ProviderRatePerMin), nil
	}
	return NewThrottled(NewFallback(primary, secondary, deps.Logger), cfg.ProviderRatePerMin), nil
}
