package slo

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func TestSLOConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"ReachRatioSLO", ReachRatioSLO, 0.95},
		{"DegradedRatioSLO", DegradedRatioSLO, 0.10},
		{"FailureRatioSLO", FailureRatioSLO, 0.05},
		{"BatchDurationSLO", BatchDurationSLO, 1800.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.value, tt.expected)
			}
		})
	}
}

func TestUpdateReachRatio(t *testing.T) {
	// Reset metric before test
	SLOReachRatio.Set(0)

	testValue := 0.97
	UpdateReachRatio(testValue)

	metric := &io_prometheus_client.Metric{}
	if err := SLOReachRatio.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	got := metric.GetGauge().GetValue()
	if got != testValue {
		t.Errorf("SLOReachRatio = %v, want %v", got, testValue)
	}
}

func TestUpdateDegradedRatio(t *testing.T) {
	// Reset metric before test
	SLODegradedRatio.Set(0)

	testValue := 0.08
	UpdateDegradedRatio(testValue)

	metric := &io_prometheus_client.Metric{}
	if err := SLODegradedRatio.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	got := metric.GetGauge().GetValue()
	if got != testValue {
		t.Errorf("SLODegradedRatio = %v, want %v", got, testValue)
	}
}

func TestUpdateFailureRatio(t *testing.T) {
	// Reset metric before test
	SLOFailureRatio.Set(0)

	testValue := 0.02
	UpdateFailureRatio(testValue)

	metric := &io_prometheus_client.Metric{}
	if err := SLOFailureRatio.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	got := metric.GetGauge().GetValue()
	if got != testValue {
		t.Errorf("SLOFailureRatio = %v, want %v", got, testValue)
	}
}

func TestUpdateBatchDuration(t *testing.T) {
	// Reset metric before test
	SLOBatchDuration.Set(0)

	testValue := 412.5
	UpdateBatchDuration(testValue)

	metric := &io_prometheus_client.Metric{}
	if err := SLOBatchDuration.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	got := metric.GetGauge().GetValue()
	if got != testValue {
		t.Errorf("SLOBatchDuration = %v, want %v", got, testValue)
	}
}

func TestMetricsAreRegistered(t *testing.T) {
	metrics := []prometheus.Collector{
		SLOReachRatio,
		SLODegradedRatio,
		SLOFailureRatio,
		SLOBatchDuration,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		select {
		case d := <-desc:
			if d == nil {
				t.Error("metric descriptor is nil")
			}
		default:
			t.Error("no descriptor received")
		}
	}
}

func TestSLOMetricsCanBeObserved(t *testing.T) {
	// Set test values
	UpdateReachRatio(0.96)
	UpdateDegradedRatio(0.04)
	UpdateFailureRatio(0.01)
	UpdateBatchDuration(305.0)

	// Verify all metrics can be collected
	metrics := []prometheus.Collector{
		SLOReachRatio,
		SLODegradedRatio,
		SLOFailureRatio,
		SLOBatchDuration,
	}

	for _, metric := range metrics {
		ch := make(chan prometheus.Metric, 1)
		metric.Collect(ch)
		select {
		case m := <-ch:
			if m == nil {
				t.Error("collected metric is nil")
			}
		default:
			t.Error("no metric collected")
		}
	}
}

func TestSLOTargetsAreReasonable(t *testing.T) {
	// Reach ratio should be a high bar but below 100%
	if ReachRatioSLO < 0.90 || ReachRatioSLO >= 1.0 {
		t.Errorf("ReachRatioSLO = %v, should be between 0.90 and 1.0", ReachRatioSLO)
	}

	// Degraded share above 25% would mean audio synthesis is effectively down
	if DegradedRatioSLO <= 0 || DegradedRatioSLO > 0.25 {
		t.Errorf("DegradedRatioSLO = %v, should be between 0 and 0.25", DegradedRatioSLO)
	}

	// Failure share must be tighter than the degraded share
	if FailureRatioSLO <= 0 || FailureRatioSLO >= DegradedRatioSLO {
		t.Errorf("FailureRatioSLO = %v, should be positive and less than DegradedRatioSLO (%v)",
			FailureRatioSLO, DegradedRatioSLO)
	}

	// The reach target and the failure budget must not contradict each other
	if ReachRatioSLO+FailureRatioSLO > 1.0 {
		t.Errorf("ReachRatioSLO (%v) + FailureRatioSLO (%v) exceed 1.0", ReachRatioSLO, FailureRatioSLO)
	}

	// A batch must finish inside the duration target with margin before the next run
	if BatchDurationSLO <= 0 || BatchDurationSLO > 3600 {
		t.Errorf("BatchDurationSLO = %v, should be between 0 and 3600 seconds", BatchDurationSLO)
	}
}
