package genclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGenerateTextSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte("  hello there \n"))
	}))
	defer srv.Close()

	c := New(Config{TextBaseURL: srv.URL})
	text, err := c.GenerateText(context.Background(), "what is go?")
	if err != nil {
		t.Fatalf("generate text: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("unexpected text %q", text)
	}
	if !strings.Contains(gotPath, "what%20is%20go%3F") {
		t.Fatalf("prompt not path-escaped, got %q", gotPath)
	}
}

func TestGenerateTextNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{TextBaseURL: srv.URL})
	_, err := c.GenerateText(context.Background(), "hi")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateTextTimeoutNoRetry(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{TextBaseURL: srv.URL, TextTimeout: 50 * time.Millisecond})
	_, err := c.GenerateText(context.Background(), "slow")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed on timeout, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one outbound call, got %d", n)
	}
}

func TestGenerateImageStyleAndAuth(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer srv.Close()

	c := New(Config{ImageBaseURL: srv.URL, APIKey: "sk-test"})
	img, err := c.GenerateImage(context.Background(), "a red fox", "anime style art")
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if len(img) != 3 {
		t.Fatalf("unexpected image bytes %v", img)
	}
	if !strings.HasPrefix(gotPath, "/anime style art, a red fox") {
		t.Fatalf("style modifier not prepended, got %q", gotPath)
	}
	if !strings.Contains(gotPath, "high quality") {
		t.Fatalf("quality suffix missing, got %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
}

func TestBuildImagePrompt(t *testing.T) {
	if got := BuildImagePrompt("a cat", ""); !strings.HasPrefix(got, "a cat") {
		t.Fatalf("styleless prompt mangled: %q", got)
	}
	got := BuildImagePrompt("a cat", "cyberpunk futuristic neon")
	if !strings.HasPrefix(got, "cyberpunk futuristic neon, a cat") {
		t.Fatalf("styled prompt wrong: %q", got)
	}
}
