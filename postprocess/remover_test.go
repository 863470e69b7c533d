package postprocess

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"trendmerch/core"
)

func TestRembgHTTPRemover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/remove" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		in, err := png.Decode(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Pretend everything is background.
		out := image.NewNRGBA(in.Bounds())
		w.Header().Set("Content-Type", "image/png")
		png.Encode(w, out)
	}))
	defer server.Close()

	remover := NewRembgHTTPRemover(server.URL+"/", server.Client(), nil)
	if remover.Endpoint() != server.URL+"/api/remove" {
		t.Errorf("Endpoint() = %q", remover.Endpoint())
	}

	out, err := remover.Remove(context.Background(), solid(6, 4, color.White))
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if out.Bounds().Dx() != 6 || out.Bounds().Dy() != 4 {
		t.Errorf("bounds = %v", out.Bounds())
	}
	if _, _, _, a := out.At(0, 0).RGBA(); a != 0 {
		t.Error("expected transparent output")
	}
}

func TestRembgHTTPRemover_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewRembgHTTPRemover(server.URL, server.Client(), nil).Remove(context.Background(), solid(2, 2, color.White))
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %v", err)
	}

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := closed.URL
	closed.Close()
	if _, err := NewRembgHTTPRemover(url, nil, nil).Remove(context.Background(), solid(2, 2, color.White)); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestCommandRemover(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-rembg")
	// Mimics "rembg i <in> <out>" by copying the input.
	content := "#!/bin/sh\n[ \"$1\" = \"i\" ] || exit 2\ncp \"$2\" \"$3\"\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := NewCommandRemover(script, nil).Remove(context.Background(), solid(5, 3, color.Black))
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if out.Bounds().Dx() != 5 || out.Bounds().Dy() != 3 {
		t.Errorf("bounds = %v", out.Bounds())
	}

	failing := filepath.Join(dir, "broken-rembg")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\necho 'no model' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err = NewCommandRemover(failing, nil).Remove(context.Background(), solid(2, 2, color.Black))
	if err == nil || !strings.Contains(err.Error(), "no model") {
		t.Errorf("error = %v, want command output in error", err)
	}
}

func TestNewRemoverFromConfig(t *testing.T) {
	tests := []struct {
		mode    string
		want    string
		wantErr bool
	}{
		{core.RembgModeHTTP, "*postprocess.RembgHTTPRemover", false},
		{core.RembgModeCommand, "*postprocess.CommandRemover", false},
		{core.RembgModeColorKey, "*postprocess.ColorKeyRemover", false},
		{core.RembgModeOff, "<nil>", false},
		{"magic", "", true},
	}
	for _, tt := range tests {
		remover, err := NewRemoverFromConfig(&core.Config{RembgMode: tt.mode, RembgURL: "http://127.0.0.1:7000"}, nil)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: error = %v", tt.mode, err)
			continue
		}
		if err == nil {
			if got := typeName(remover); got != tt.want {
				t.Errorf("%s: remover = %s, want %s", tt.mode, got, tt.want)
			}
		}
	}
	if _, err := NewRemoverFromConfig(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
}
