package httpapi

import (
	"bytes"
	"net/http"
	"testing"
)

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()

	headers := map[string]string{
		"X-Content-Type-Options":      "nosniff",
		"X-Frame-Options":             "DENY",
		"Referrer-Policy":             "no-referrer",
		"Access-Control-Allow-Origin": "http://127.0.0.1:3000",
	}
	for key, want := range headers {
		if got := resp.Header.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/products", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("preflight missing Access-Control-Allow-Methods")
	}
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t)

	body := []byte(`{"username":"admin","password":"wrong"}`)
	var last int
	for i := 0; i < 6; i++ {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Real-IP", "10.1.2.3")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("login attempt %d: %v", i, err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt status = %d, want 429", last)
	}

	// A different source address is not throttled.
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-IP", "10.9.9.9")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("fresh address login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		t.Fatal("fresh address was throttled")
	}
}

// Each request rides a fresh TCP connection, so RemoteAddr carries a new
// ephemeral port every time; throttling must still accumulate per host.
func TestLoginRateLimitedAcrossConnections(t *testing.T) {
	ts := newTestServer(t)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	body := []byte(`{"username":"admin","password":"wrong"}`)
	var last int
	for i := 0; i < 6; i++ {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("login attempt %d: %v", i, err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt status = %d, want 429", last)
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	cases := map[string]string{
		"192.0.2.10:51762": "192.0.2.10",
		"[2001:db8::1]:80": "2001:db8::1",
		"192.0.2.10":       "192.0.2.10",
		"":                 "unknown",
	}
	for remote, want := range cases {
		r := &http.Request{RemoteAddr: remote}
		if got := clientKey(r); got != want {
			t.Errorf("clientKey(%q) = %q, want %q", remote, got, want)
		}
	}
}

func TestAttemptLimiterWindow(t *testing.T) {
	limiter := newAttemptLimiter(2, 0)
	if !limiter.Allow("k") || !limiter.Allow("k") {
		t.Fatal("first two attempts should pass")
	}
	if limiter.Allow("k") {
		t.Fatal("third attempt within the window should be rejected")
	}
	if !limiter.Allow("other") {
		t.Fatal("different key must not share the window")
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "cashier", "cashier123")

	huge := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	payload := append([]byte(`{"notes":"`), huge...)
	payload = append(payload, []byte(`"}`)...)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/checkout", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("oversized request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
