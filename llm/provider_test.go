package llm

import (
	"fmt"
	"reflect"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"openai", "*llm.openAIProvider"},
		{"groq", "*llm.groqProvider"},
		{"ollama", "*llm.ollamaProvider"},
		{"custom", "*llm.openAICompatProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := Config{
				Provider: tt.provider,
				Model:    "test-model",
			}
			p, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			gotType := fmt.Sprintf("%T", p)
			if gotType != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, gotType, tt.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist", Model: "test-model"})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	want := "unknown llm provider: doesnotexist"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewProviderEmpty(t *testing.T) {
	_, err := NewProvider(Config{Provider: "", Model: "test-model"})
	if err == nil {
		t.Fatal("expected error for empty provider, got nil")
	}
	want := "llm provider not specified"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

// TestDefaultBaseURLs verifies that when BaseURL is empty in the config,
// each provider constructor sets the correct default.
func TestDefaultBaseURLs(t *testing.T) {
	tests := []struct {
		provider string
		wantURL  string
	}{
		{"openai", "https://api.openai.com"},
		{"groq", "https://api.groq.com/openai"},
		{"ollama", "http://localhost:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, Model: "test-model"})
			if err != nil {
				t.Fatalf("NewProvider(%q): %v", tt.provider, err)
			}

			// Use reflection to reach base.cfg.BaseURL on the concrete type.
			v := reflect.ValueOf(p).Elem()
			gotURL := v.FieldByName("base").FieldByName("cfg").FieldByName("BaseURL").String()
			if gotURL != tt.wantURL {
				t.Errorf("default BaseURL for %q = %q, want %q", tt.provider, gotURL, tt.wantURL)
			}
		})
	}
}

// TestExplicitBaseURLPreserved verifies that a user-supplied BaseURL
// is not overwritten by the default.
func TestExplicitBaseURLPreserved(t *testing.T) {
	customURL := "http://my-server:9999"

	for _, provider := range []string{"openai", "groq", "ollama", "custom"} {
		t.Run(provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: provider, Model: "test-model", BaseURL: customURL})
			if err != nil {
				t.Fatalf("NewProvider(%q): %v", provider, err)
			}

			v := reflect.ValueOf(p).Elem()
			gotURL := v.FieldByName("base").FieldByName("cfg").FieldByName("BaseURL").String()
			if gotURL != customURL {
				t.Errorf("provider %q BaseURL = %q, want %q", provider, gotURL, customURL)
			}
		})
	}
}

// TestAPIKeyPassedThrough verifies the API key from Config is stored
// inside the provider.
func TestAPIKeyPassedThrough(t *testing.T) {
	p, err := NewProvider(Config{Provider: "groq", Model: "test", APIKey: "sk-test-key-123"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	v := reflect.ValueOf(p).Elem()
	gotKey := v.FieldByName("base").FieldByName("cfg").FieldByName("APIKey").String()
	if gotKey != "sk-test-key-123" {
		t.Errorf("api key = %q, want %q", gotKey, "sk-test-key-123")
	}
}
