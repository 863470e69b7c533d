package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trendmerch/core"
)

func TestNewOpenAIProvider_NilConfig(t *testing.T) {
	provider, err := NewOpenAIProvider(nil, nil)
	if err == nil || provider != nil {
		t.Fatal("expected error for nil config")
	}
	if err.Error() != "imagegen: config cannot be nil" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestNewOpenAIProvider_LocalEndpoint(t *testing.T) {
	tests := []string{
		"http://localhost:1234",
		"http://127.0.0.1:8080",
		"http://192.168.1.100:5000",
		"http://10.0.0.1:8000",
	}
	for _, endpoint := range tests {
		cfg := &core.Config{OpenAIAPIKey: "test-key", ImageLLMURL: endpoint}
		if provider, err := NewOpenAIProvider(cfg, nil); err == nil || provider != nil {
			t.Errorf("expected error for local endpoint %s", endpoint)
		}
	}
}

func TestNewOpenAIProvider_DefaultModel(t *testing.T) {
	cfg := &core.Config{
		OpenAIAPIKey: "test-api-key",
		ImageLLMURL:  "https://api.openai.com/v1",
		AITimeout:    30 * time.Second,
	}
	provider, err := NewOpenAIProvider(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Model() != "dall-e-3" {
		t.Errorf("expected default model dall-e-3, got %s", provider.Model())
	}
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	provider, err := NewOpenAIProviderWithConfig(OpenAIProviderConfig{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := provider.Generate(context.Background(), "prompt"); !IsAuthError(err) {
		t.Errorf("error = %v, want auth error", err)
	}
}

func TestBuildImageRequest(t *testing.T) {
	dalle := buildImageRequest("p", "dall-e-3")
	if dalle.ResponseFormat != "b64_json" || dalle.Style != "vivid" || dalle.N != 1 {
		t.Errorf("dall-e request = %+v", dalle)
	}
	gpt := buildImageRequest("p", "gpt-image-1")
	if gpt.ResponseFormat != "" || gpt.Style != "" {
		t.Errorf("gpt-image request = %+v", gpt)
	}
}

// fakeImagesAPI serves /v1/images/generations and /files/design.png.
func fakeImagesAPI(t *testing.T, payload []byte, status int, useURL bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/images/generations":
			if r.Header.Get("Authorization") != "Bearer sk-test" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			w.Header().Set("Content-Type", "application/json")
			if status != http.StatusOK {
				w.WriteHeader(status)
				w.Write([]byte(`{"error":{"message":"upstream says no","type":"server_error"}}`))
				return
			}
			item := map[string]string{"b64_json": base64.StdEncoding.EncodeToString(payload)}
			if useURL {
				item = map[string]string{"url": "https://files.example.com/files/design.png"}
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"created": 1,
				"data":    []map[string]string{item},
			})
		case "/files/design.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newRedirectedOpenAIProvider(t *testing.T, server *httptest.Server) *OpenAIProvider {
	t.Helper()
	provider, err := NewOpenAIProviderWithConfig(OpenAIProviderConfig{
		APIKey:     "sk-test",
		BaseURL:    "https://api.example.com/v1",
		Model:      "dall-e-3",
		HTTPClient: redirectingClient(t, server),
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return provider
}

func TestOpenAIProvider_Base64Response(t *testing.T) {
	payload := pngBytes(t, 8, 8)
	server := fakeImagesAPI(t, payload, http.StatusOK, false)
	defer server.Close()

	data, err := newRedirectedOpenAIProvider(t, server).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(data) != string(payload) {
		t.Error("payload mismatch")
	}
}

func TestOpenAIProvider_URLResponse(t *testing.T) {
	payload := pngBytes(t, 8, 8)
	server := fakeImagesAPI(t, payload, http.StatusOK, true)
	defer server.Close()

	data, err := newRedirectedOpenAIProvider(t, server).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := DecodeRaw(data); err != nil {
		t.Errorf("downloaded payload invalid: %v", err)
	}
}

func TestOpenAIProvider_ErrorStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   Kind
	}{
		{http.StatusServiceUnavailable, KindServiceBusy},
		{http.StatusTooManyRequests, KindServiceBusy},
		{http.StatusUnauthorized, KindAuth},
		{http.StatusBadRequest, KindRejected},
	}
	for _, tt := range tests {
		server := fakeImagesAPI(t, nil, tt.status, false)
		provider := newRedirectedOpenAIProvider(t, server)
		_, err := provider.Generate(context.Background(), "prompt")
		if KindOf(err) != tt.kind {
			t.Errorf("status %d: kind = %s, want %s (err: %v)", tt.status, KindOf(err), tt.kind, err)
		}
		server.Close()
	}
}
