package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"trendmerch/core"
)

func TestHuggingFaceProvider_Generate(t *testing.T) {
	payload := pngBytes(t, 32, 32)
	var gotAuth, gotPath string
	var gotBody hfRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer server.Close()

	provider, err := NewHuggingFaceProviderWithConfig(HuggingFaceProviderConfig{
		Token:   "hf_testtoken",
		BaseURL: server.URL + "/models/",
		Model:   "black-forest-labs/FLUX.1-schnell",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	data, err := provider.Generate(context.Background(), "a vaporwave eclipse")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("payload length = %d, want %d", len(data), len(payload))
	}
	if gotAuth != "Bearer hf_testtoken" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/models/black-forest-labs/FLUX.1-schnell" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.Inputs != "a vaporwave eclipse" {
		t.Errorf("inputs = %q", gotBody.Inputs)
	}
}

func TestHuggingFaceProvider_MissingTokenMakesNoRequest(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	provider, _ := NewHuggingFaceProviderWithConfig(HuggingFaceProviderConfig{BaseURL: server.URL}, nil)

	_, err := provider.Generate(context.Background(), "prompt")
	if !IsAuthError(err) || !errors.Is(err, ErrMissingCredential) {
		t.Errorf("error = %v, want missing-credential auth error", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("server received %d requests", hits)
	}
}

func TestHuggingFaceProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		kind        Kind
	}{
		{"model loading", 503, "application/json", `{"error":"Model is currently loading","estimated_time":20.5}`, KindServiceBusy},
		{"rate limited", 429, "application/json", `{"error":"Rate limit reached"}`, KindServiceBusy},
		{"bad token", 401, "application/json", `{"error":"Invalid credentials"}`, KindAuth},
		{"gated model", 403, "application/json", `{"error":"Access denied"}`, KindAuth},
		{"unknown model", 404, "text/plain", "Not Found", KindRejected},
		{"json on 200", 200, "application/json", `{"error":"unexpected"}`, KindBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, _ := NewHuggingFaceProviderWithConfig(HuggingFaceProviderConfig{
				Token:   "hf_testtoken",
				BaseURL: server.URL,
			}, nil)

			_, err := provider.Generate(context.Background(), "prompt")
			if KindOf(err) != tt.kind {
				t.Errorf("kind = %s, want %s (err: %v)", KindOf(err), tt.kind, err)
			}
		})
	}
}

func TestHuggingFaceProvider_ErrorMessageIncludesEstimate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
		w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20}`))
	}))
	defer server.Close()

	provider, _ := NewHuggingFaceProviderWithConfig(HuggingFaceProviderConfig{Token: "t", BaseURL: server.URL}, nil)
	_, err := provider.Generate(context.Background(), "prompt")
	if err == nil || !containsAll(err.Error(), "Model is currently loading", "estimated time 20s", "503") {
		t.Errorf("error = %v", err)
	}
}

func TestHuggingFaceProvider_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider, _ := NewHuggingFaceProviderWithConfig(HuggingFaceProviderConfig{Token: "t", BaseURL: url}, nil)
	_, err := provider.Generate(context.Background(), "prompt")
	if KindOf(err) != KindNetwork {
		t.Errorf("kind = %s, want network", KindOf(err))
	}
}

func TestNewHuggingFaceProvider_FromConfig(t *testing.T) {
	if _, err := NewHuggingFaceProvider(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}

	provider, err := NewHuggingFaceProvider(&core.Config{HFToken: "hf_x"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if provider.Model() != core.DefaultHFModel {
		t.Errorf("Model() = %q", provider.Model())
	}
	if provider.Endpoint() != core.DefaultHFBaseURL+"/"+core.DefaultHFModel {
		t.Errorf("Endpoint() = %q", provider.Endpoint())
	}
}

func TestNewProviderFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *core.Config
		want    string
		wantErr bool
	}{
		{"nil", nil, "", true},
		{"huggingface", &core.Config{Provider: core.ProviderHuggingFace}, "*imagegen.HuggingFaceProvider", false},
		{"openai", &core.Config{Provider: core.ProviderOpenAI, OpenAIAPIKey: "sk-x"}, "*imagegen.OpenAIProvider", false},
		{"azure", &core.Config{
			Provider:              core.ProviderAzure,
			OpenAIAPIKey:          "key",
			AzureOpenAIEndpoint:   "https://res.openai.azure.com/",
			AzureOpenAIDeployment: "dalle3",
		}, "*imagegen.AzureProvider", false},
		{"unknown", &core.Config{Provider: "midjourney"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProviderFromConfig(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if got := typeName(provider); got != tt.want {
					t.Errorf("provider type = %s, want %s", got, tt.want)
				}
			}
		})
	}
}
