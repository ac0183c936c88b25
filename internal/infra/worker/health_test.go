package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func testHealthLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// startTestHealthServer runs a HealthServer on the given port and waits
// for it to accept connections.
func startTestHealthServer(t *testing.T, ctx context.Context, port int) *HealthServer {
	t.Helper()

	server := NewHealthServer(fmt.Sprintf("127.0.0.1:%d", port), testHealthLogger())
	go func() {
		if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
			t.Logf("health server exited: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)
	return server
}

func getHealth(t *testing.T, url string) (int, healthResponse) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response from %s: %v", url, err)
	}
	return resp.StatusCode, body
}

func TestHealthServer_Liveness(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startTestHealthServer(t, ctx, 19181)

	status, body := getHealth(t, "http://127.0.0.1:19181/health")

	if status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
	if body.Status != "ok" {
		t.Errorf("Expected body status 'ok', got '%s'", body.Status)
	}
}

func TestHealthServer_ReadinessTransitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server := startTestHealthServer(t, ctx, 19182)

	// Readiness starts false until the scheduler is running.
	status, body := getHealth(t, "http://127.0.0.1:19182/health/ready")
	if status != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 before SetReady, got %d", status)
	}
	if body.Status != "not ready" {
		t.Errorf("Expected body status 'not ready', got '%s'", body.Status)
	}

	server.SetReady(true)

	status, body = getHealth(t, "http://127.0.0.1:19182/health/ready")
	if status != http.StatusOK {
		t.Errorf("Expected status 200 after SetReady, got %d", status)
	}
	if body.Status != "ok" {
		t.Errorf("Expected body status 'ok', got '%s'", body.Status)
	}

	server.SetReady(false)

	status, _ = getHealth(t, "http://127.0.0.1:19182/health/ready")
	if status != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 after SetReady(false), got %d", status)
	}
}

func TestHealthServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	startTestHealthServer(t, ctx, 19183)

	// Server must answer before shutdown.
	status, _ := getHealth(t, "http://127.0.0.1:19183/health")
	if status != http.StatusOK {
		t.Fatalf("Expected status 200 before shutdown, got %d", status)
	}

	cancel()
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:19183/health")
	if err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		t.Error("Expected connection error after shutdown, server still responding")
	}
}
