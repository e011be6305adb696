package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingHandler struct {
	mu           sync.Mutex
	unauthorized []string
	forbidden    []string
	completed    []int
}

func (h *recordingHandler) Unauthorized(req *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unauthorized = append(h.unauthorized, req.Header.Get("Authorization"))
}

func (h *recordingHandler) Forbidden(req *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forbidden = append(h.forbidden, req.URL.Path)
}

func (h *recordingHandler) Completed(_ *http.Request, status int, _ error, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = append(h.completed, status)
}

func statusServer(t *testing.T) (*httptest.Server, func() http.Header) {
	t.Helper()
	var (
		mu   sync.Mutex
		last http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		last = r.Header.Clone()
		mu.Unlock()
		switch r.URL.Path {
		case "/401":
			w.WriteHeader(http.StatusUnauthorized)
		case "/403":
			w.WriteHeader(http.StatusForbidden)
		case "/500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = io.WriteString(w, "ok")
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() http.Header {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestAuthorizerAttachesBearer(t *testing.T) {
	srv, last := statusServer(t)
	client := &http.Client{Transport: &Authorizer{Tokens: StaticToken("t1")}}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/clients", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if got := last().Get("Authorization"); got != "Bearer t1" {
		t.Fatalf("Authorization = %q", got)
	}
	if last().Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id")
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatalf("caller request was mutated")
	}
}

func TestAuthorizerSkipsOptionsAndAnonymous(t *testing.T) {
	srv, last := statusServer(t)

	client := &http.Client{Transport: &Authorizer{Tokens: StaticToken("t1")}}
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/clients", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if got := last().Get("Authorization"); got != "" {
		t.Fatalf("OPTIONS carried credential %q", got)
	}

	anon := &http.Client{Transport: &Authorizer{Tokens: StaticToken("")}}
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/clients", nil)
	req.Header.Set(RequestIDHeader, "fixed")
	resp, err = anon.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if got := last().Get("Authorization"); got != "" {
		t.Fatalf("anonymous request carried credential %q", got)
	}
	if got := last().Get(RequestIDHeader); got != "fixed" {
		t.Fatalf("request id overwritten: %q", got)
	}
}

func TestFaultTranslatorReportsAuthFaults(t *testing.T) {
	srv, _ := statusServer(t)
	h := &recordingHandler{}
	client := &http.Client{Transport: New(nil, StaticToken("t1"), h)}

	for _, path := range []string{"/ok", "/401", "/403", "/500"} {
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
	}

	if len(h.unauthorized) != 1 || h.unauthorized[0] != "Bearer t1" {
		t.Fatalf("unauthorized calls = %v", h.unauthorized)
	}
	if len(h.forbidden) != 1 || h.forbidden[0] != "/403" {
		t.Fatalf("forbidden calls = %v", h.forbidden)
	}
	want := []int{200, 401, 403, 500}
	if len(h.completed) != len(want) {
		t.Fatalf("completed = %v", h.completed)
	}
	for i := range want {
		if h.completed[i] != want[i] {
			t.Fatalf("completed = %v, want %v", h.completed, want)
		}
	}
}

func TestFaultTranslatorHonoursSkipFaults(t *testing.T) {
	srv, _ := statusServer(t)
	h := &recordingHandler{}
	client := &http.Client{Transport: New(nil, StaticToken("t1"), h)}

	req, _ := http.NewRequestWithContext(SkipFaults(context.Background()), http.MethodPost, srv.URL+"/401", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(h.unauthorized) != 0 {
		t.Fatalf("skipped request was translated")
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestFaultTranslatorPassesTransportErrors(t *testing.T) {
	h := &recordingHandler{}
	client := &http.Client{Transport: New(failingTransport{}, nil, h)}
	if _, err := client.Get("http://lending.invalid/api/credits"); err == nil {
		t.Fatalf("expected transport error")
	}
	if len(h.unauthorized)+len(h.forbidden) != 0 {
		t.Fatalf("transport error translated as fault")
	}
	if len(h.completed) != 1 || h.completed[0] != 0 {
		t.Fatalf("completed = %v", h.completed)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"abc", "", false},
	}
	for _, tc := range tests {
		got, ok := BearerToken(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("BearerToken(%q) = %q, %v", tc.in, got, ok)
		}
	}
}
