package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointDiagnostic represents the diagnostic result for a single worker endpoint
type EndpointDiagnostic struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Status       string `json:"status"` // "OK", "NOT_READY", "DEGRADED", "HTTP_ERROR", "TIMEOUT", "UNREACHABLE"
	HTTPCode     int    `json:"http_code"`
	Detail       string `json:"detail,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

// breakerHealth mirrors the /health/breakers response shape
type breakerHealth struct {
	Healthy  bool `json:"healthy"`
	Breakers []struct {
		Service string `json:"service"`
		State   string `json:"state"`
	} `json:"breakers"`
}

// metricSeries are the series a healthy worker is expected to expose
var metricSeries = []string{
	"worker_cron_job_runs_total",
	"worker_cron_job_duration_seconds",
	"outbound_calls_total",
	"circuit_breaker_state",
	"slo_batch_reach_ratio",
}

func main() {
	host := os.Getenv("WORKER_HOST")
	if host == "" {
		host = "localhost"
		log.Println("WORKER_HOST not set, using localhost")
	}
	healthPort := envPort("WORKER_HEALTH_PORT", 9091)
	metricsPort := envPort("METRICS_PORT", 9090)

	targets := []struct {
		name string
		url  string
	}{
		{"liveness", fmt.Sprintf("http://%s:%d/health", host, healthPort)},
		{"readiness", fmt.Sprintf("http://%s:%d/health/ready", host, healthPort)},
		{"metrics health", fmt.Sprintf("http://%s:%d/health", host, metricsPort)},
		{"breaker health", fmt.Sprintf("http://%s:%d/health/breakers", host, metricsPort)},
		{"metrics scrape", fmt.Sprintf("http://%s:%d/metrics", host, metricsPort)},
	}

	log.Printf("Diagnosing %d worker endpoints...\n", len(targets))

	diagnostics := make([]EndpointDiagnostic, 0, len(targets))
	for i, target := range targets {
		log.Printf("[%d/%d] Probing: %s", i+1, len(targets), target.name)
		diag := diagnoseEndpoint(target.name, target.url, 5*time.Second)
		diagnostics = append(diagnostics, diag)
	}

	// Generate report
	generateReport(diagnostics)
	generateJSONReport(diagnostics)
}

func envPort(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		log.Printf("Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return port
}

func diagnoseEndpoint(name, url string, timeout time.Duration) EndpointDiagnostic {
	diag := EndpointDiagnostic{
		Name: name,
		URL:  url,
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		diag.Status = "REQUEST_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	resp, err := http.DefaultClient.Do(req)
	diag.ResponseTime = time.Since(startTime).Milliseconds()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			diag.Status = "TIMEOUT"
			diag.ErrorMessage = fmt.Sprintf("Request timeout after %v", timeout)
		} else {
			diag.Status = "UNREACHABLE"
			diag.ErrorMessage = err.Error()
		}
		return diag
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	diag.HTTPCode = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		diag.Status = "READ_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	switch name {
	case "readiness":
		if resp.StatusCode == http.StatusServiceUnavailable {
			diag.Status = "NOT_READY"
			diag.Detail = "worker has not finished startup or is shutting down"
			return diag
		}
	case "breaker health":
		return classifyBreakers(diag, resp.StatusCode, body)
	case "metrics scrape":
		return classifyMetrics(diag, resp.StatusCode, body)
	}

	if resp.StatusCode != http.StatusOK {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)
		return diag
	}

	diag.Status = "OK"
	return diag
}

// classifyBreakers parses the breaker health payload. A 503 with open
// breakers is a degraded worker, not a broken endpoint.
func classifyBreakers(diag EndpointDiagnostic, code int, body []byte) EndpointDiagnostic {
	var health breakerHealth
	if err := json.Unmarshal(body, &health); err != nil {
		diag.Status = "PARSE_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	var open []string
	for _, b := range health.Breakers {
		if b.State != "closed" {
			open = append(open, fmt.Sprintf("%s=%s", b.Service, b.State))
		}
	}

	if code == http.StatusOK && health.Healthy {
		diag.Status = "OK"
		diag.Detail = fmt.Sprintf("%d breakers, all closed", len(health.Breakers))
		return diag
	}

	diag.Status = "DEGRADED"
	diag.Detail = strings.Join(open, ", ")
	return diag
}

// classifyMetrics checks that the expected series are present in the scrape.
func classifyMetrics(diag EndpointDiagnostic, code int, body []byte) EndpointDiagnostic {
	if code != http.StatusOK {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("HTTP %d", code)
		return diag
	}

	text := string(body)
	var missing []string
	for _, series := range metricSeries {
		if !strings.Contains(text, series) {
			missing = append(missing, series)
		}
	}

	if len(missing) > 0 {
		diag.Status = "DEGRADED"
		diag.Detail = "missing series: " + strings.Join(missing, ", ")
		return diag
	}

	diag.Status = "OK"
	diag.Detail = fmt.Sprintf("all %d expected series present", len(metricSeries))
	return diag
}

// writef is a helper to write to file and handle errors
func writef(f *os.File, format string, args ...interface{}) error {
	_, err := fmt.Fprintf(f, format, args...)
	return err
}

func generateReport(diagnostics []EndpointDiagnostic) {
	f, err := os.Create("worker_diagnostic_report.txt")
	if err != nil {
		log.Printf("Failed to create report file: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close report file: %v", err)
		}
	}()

	// Helper to handle write errors
	writeErr := func(err error) bool {
		if err != nil {
			log.Printf("Failed to write to report: %v", err)
			return true
		}
		return false
	}

	if writeErr(writef(f, "===============================================\n")) {
		return
	}
	if writeErr(writef(f, "Worker Endpoint Diagnostic Report\n")) {
		return
	}
	if writeErr(writef(f, "Generated: %s\n", time.Now().Format(time.RFC3339))) {
		return
	}
	if writeErr(writef(f, "Total Endpoints: %d\n", len(diagnostics))) {
		return
	}
	if writeErr(writef(f, "===============================================\n\n")) {
		return
	}

	// Summary statistics
	statusCount := make(map[string]int)
	var okCount, errorCount int
	for _, d := range diagnostics {
		statusCount[d.Status]++
		if d.Status == "OK" {
			okCount++
		} else {
			errorCount++
		}
	}

	_ = writef(f, "SUMMARY:\n")
	_ = writef(f, "  ✅ Healthy: %d (%.1f%%)\n", okCount, float64(okCount)/float64(len(diagnostics))*100)
	_ = writef(f, "  ❌ Attention: %d (%.1f%%)\n", errorCount, float64(errorCount)/float64(len(diagnostics))*100)
	_ = writef(f, "\nSTATUS BREAKDOWN:\n")
	for status, count := range statusCount {
		_ = writef(f, "  %s: %d\n", status, count)
	}
	_ = writef(f, "\n")

	// Detailed results
	_ = writef(f, "DETAILED RESULTS:\n")
	_ = writef(f, "===============================================\n\n")

	// Healthy endpoints
	_ = writef(f, "✅ HEALTHY ENDPOINTS (%d):\n", okCount)
	_ = writef(f, "-------------------------------------------\n")
	for _, d := range diagnostics {
		if d.Status == "OK" {
			_ = writef(f, "Name: %s\n", d.Name)
			_ = writef(f, "  URL: %s\n", d.URL)
			_ = writef(f, "  Response: %dms | HTTP: %d\n", d.ResponseTime, d.HTTPCode)
			if d.Detail != "" {
				_ = writef(f, "  Detail: %s\n", d.Detail)
			}
			_ = writef(f, "\n")
		}
	}

	// Endpoints needing attention
	_ = writef(f, "\n❌ ENDPOINTS NEEDING ATTENTION (%d):\n", errorCount)
	_ = writef(f, "-------------------------------------------\n")
	for _, d := range diagnostics {
		if d.Status != "OK" {
			_ = writef(f, "Name: %s\n", d.Name)
			_ = writef(f, "  URL: %s\n", d.URL)
			_ = writef(f, "  Status: %s | HTTP: %d\n", d.Status, d.HTTPCode)
			if d.Detail != "" {
				_ = writef(f, "  Detail: %s\n", d.Detail)
			}
			if d.ErrorMessage != "" {
				_ = writef(f, "  Error: %s\n", d.ErrorMessage)
			}
			_ = writef(f, "  Response: %dms\n", d.ResponseTime)
			_ = writef(f, "\n")
		}
	}

	log.Println("✅ Text report generated: worker_diagnostic_report.txt")
}

func generateJSONReport(diagnostics []EndpointDiagnostic) {
	f, err := os.Create("worker_diagnostic_report.json")
	if err != nil {
		log.Printf("Failed to create JSON report: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close JSON report file: %v", err)
		}
	}()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(diagnostics); err != nil {
		log.Printf("Failed to write JSON report: %v", err)
		return
	}

	log.Println("✅ JSON report generated: worker_diagnostic_report.json")
}
