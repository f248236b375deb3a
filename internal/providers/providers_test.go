package providers

import (
	"net/http"
	"testing"
)

func TestExtractErrorMetadata(t *testing.T) {
	tests := []struct {
		name           string
		errMsg         string
		wantStatus     int
		wantRetryAfter string
	}{
		{"rate limit with header", "API error: 429 Too Many Requests, Retry-After: 30", http.StatusTooManyRequests, "30"},
		{"rate limit prose", "rate limited, retry after 12 seconds", 0, "12"},
		{"server error", "upstream returned 503 Service Unavailable", http.StatusServiceUnavailable, ""},
		{"auth", "401 Unauthorized: invalid api key", http.StatusUnauthorized, ""},
		{"no metadata", "connection reset by peer", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, retryAfter := extractErrorMetadata(errorString(tt.errMsg))
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if retryAfter != tt.wantRetryAfter {
				t.Errorf("retryAfter = %q, want %q", retryAfter, tt.wantRetryAfter)
			}
		})
	}

	if status, _ := extractErrorMetadata(nil); status != 0 {
		t.Errorf("status for nil error = %d, want 0", status)
	}
}

type errorString string

func (e errorString) Error() string { return string(e) }

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "carrier-pigeon")
	if _, _, err := NewModelClientFromEnv(); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, _, err := NewModelClientFromEnv(); err == nil {
		t.Error("missing api key accepted")
	}
}

func TestFactoryDefaultsModel(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("ANTHROPIC_MODEL", "")

	client, model, err := NewModelClientFromEnv()
	if err != nil {
		t.Fatalf("NewModelClientFromEnv() error: %v", err)
	}
	if client == nil || model != "claude-sonnet-4-5" {
		t.Errorf("client = %v, model = %q", client, model)
	}
}
