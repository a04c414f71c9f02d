package util

import (
	"net/http"
	"testing"
	"time"
)

func TestNewProxyFunc_Explicit(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "internal.local")

	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/embeddings", nil)
	u, err := proxy(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if u == nil || u.Host != "proxy.local:3128" {
		t.Errorf("expected https to fall back to the http proxy, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://internal.local/api/embed", nil)
	u, err = proxy(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if u != nil {
		t.Errorf("expected NO_PROXY host to bypass the proxy, got %v", u)
	}
}

func TestNewProxyFunc_SchemeSpecific(t *testing.T) {
	proxy := NewProxyFunc("http://plain:8080", "http://secure:8443", "")

	req, _ := http.NewRequest(http.MethodGet, "https://crosswordtracker.com/", nil)
	u, _ := proxy(req)
	if u == nil || u.Host != "secure:8443" {
		t.Errorf("expected https proxy, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com/", nil)
	u, _ = proxy(req)
	if u == nil || u.Host != "plain:8080" {
		t.Errorf("expected http proxy, got %v", u)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(3*time.Second, "", "", "")
	if c.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", c.Timeout)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Error("expected *http.Transport")
	}
}
