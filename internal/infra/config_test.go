package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "")
	t.Setenv("IMAGE_FALLBACK_PROVIDER", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("SESSION_TTL_MINUTES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ImageProvider != "pollinations" {
		t.Fatalf("ImageProvider = %q, want pollinations", cfg.ImageProvider)
	}
	if cfg.CropBaseSize != 512 || cfg.CropMultiple != 64 {
		t.Fatalf("crop defaults = %d/%d, want 512/64", cfg.CropBaseSize, cfg.CropMultiple)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("SessionTTL = %s, want 2h", cfg.SessionTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigProviderSelection(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "Cloudflare")
	t.Setenv("IMAGE_FALLBACK_PROVIDER", "pollinations")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct")
	t.Setenv("CLOUDFLARE_API_TOKEN", "token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ImageProvider != "cloudflare" {
		t.Fatalf("ImageProvider = %q, want cloudflare", cfg.ImageProvider)
	}
	if cfg.FallbackProvider != "pollinations" {
		t.Fatalf("FallbackProvider = %q, want pollinations", cfg.FallbackProvider)
	}
	if cfg.CloudflareAccountID != "acct" || cfg.CloudflareAPIToken != "token" {
		t.Fatalf("cloudflare credentials not loaded: %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown provider", env: map[string]string{"IMAGE_PROVIDER": "midjourney"}},
		{name: "unknown fallback", env: map[string]string{"IMAGE_FALLBACK_PROVIDER": "dalle"}},
		{name: "fallback equals primary", env: map[string]string{"IMAGE_PROVIDER": "fal", "IMAGE_FALLBACK_PROVIDER": "fal"}},
		{name: "tiny crop base", env: map[string]string{"CROP_BASE_SIZE": "32"}},
		{name: "multiple above base", env: map[string]string{"CROP_BASE_SIZE": "256", "CROP_MULTIPLE": "512"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("IMAGE_PROVIDER", "")
			t.Setenv("IMAGE_FALLBACK_PROVIDER", "")
			t.Setenv("CROP_BASE_SIZE", "")
			t.Setenv("CROP_MULTIPLE", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	got := getEnvList("CORS_ALLOWED_ORIGINS", nil)
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(got) != len(want) {
		t.Fatalf("getEnvList() = %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("getEnvList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
