package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchFallsThroughGateways(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/QmTest" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte("payload"))
	}))
	defer healthy.Close()

	g := NewIPFSGateway([]string{slow.URL, missing.URL, healthy.URL}, 100*time.Millisecond)

	body, err := g.Fetch(context.Background(), "QmTest")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("unexpected body: %s", string(body))
	}
}

func TestFetchExhaustionReportsEveryAttempt(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	gateways := []string{slow.URL, missing.URL, broken.URL}
	g := NewIPFSGateway(gateways, 100*time.Millisecond)

	_, err := g.Fetch(context.Background(), "QmMissing")
	if err == nil {
		t.Fatal("expected an error")
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("unexpected error type: %T", err)
	}
	if len(exhausted.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(exhausted.Attempts))
	}
	for i, attempt := range exhausted.Attempts {
		if attempt.Gateway != gateways[i] {
			t.Errorf("attempt %d hit %s, want %s", i, attempt.Gateway, gateways[i])
		}
		if attempt.Err == nil {
			t.Errorf("attempt %d carries no error", i)
		}
	}
}

func TestFetchServesSecondReadFromCache(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("immutable"))
	}))
	defer server.Close()

	g := NewIPFSGateway([]string{server.URL}, time.Second)

	for i := 0; i < 2; i++ {
		body, err := g.Fetch(context.Background(), "QmCached")
		if err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
		if string(body) != "immutable" {
			t.Errorf("fetch %d returned %q", i, string(body))
		}
	}

	if hits != 1 {
		t.Errorf("expected a single upstream hit, got %d", hits)
	}
}

func TestFetchStopsWhenContextDies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	g := NewIPFSGateway([]string{server.URL, server.URL, server.URL}, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := g.Fetch(ctx, "QmTest")
	if err == nil {
		t.Fatal("expected an error")
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("unexpected error type: %T", err)
	}
	if len(exhausted.Attempts) != 1 {
		t.Errorf("expected the fetch to stop after 1 attempt, got %d", len(exhausted.Attempts))
	}
}
