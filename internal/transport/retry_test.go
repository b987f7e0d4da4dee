package transport

import "testing"

func TestCalculateDelayUsesRetryAfterWhenPresent(t *testing.T) {
	cfg := DefaultRetryConfig()
	retryAfter := int64(5000)
	got := CalculateDelay(cfg, 3, &retryAfter, 1.0)
	if got != 5000 {
		t.Fatalf("expected 5000, got %d", got)
	}
}

func TestCalculateDelayClampsRetryAfterToMaxDelay(t *testing.T) {
	cfg := DefaultRetryConfig()
	retryAfter := int64(120_000)
	got := CalculateDelay(cfg, 0, &retryAfter, 1.0)
	if got != cfg.MaxDelayMs {
		t.Fatalf("expected %d, got %d", cfg.MaxDelayMs, got)
	}
}

func TestCalculateDelayExponentialBackoffNoJitter(t *testing.T) {
	cfg := DefaultRetryConfig() // initial 1000ms, factor 2.0
	cases := []struct {
		attempt int
		want    int64
	}{
		{0, 1000},
		{1, 2000},
		{2, 4000},
	}
	for _, tc := range cases {
		got := CalculateDelay(cfg, tc.attempt, nil, 1.0)
		if got != tc.want {
			t.Fatalf("attempt %d: expected %d, got %d", tc.attempt, tc.want, got)
		}
	}
}

func TestCalculateDelayAppliesJitter(t *testing.T) {
	cfg := DefaultRetryConfig()
	got := CalculateDelay(cfg, 0, nil, 0.75)
	if got != 750 {
		t.Fatalf("expected 750, got %d", got)
	}
	got = CalculateDelay(cfg, 0, nil, 1.25)
	if got != 1250 {
		t.Fatalf("expected 1250, got %d", got)
	}
}

func TestCalculateDelayClampsComputedDelayToMax(t *testing.T) {
	cfg := DefaultRetryConfig()
	got := CalculateDelay(cfg, 10, nil, 1.25) // base would be astronomically large
	if got != cfg.MaxDelayMs {
		t.Fatalf("expected %d, got %d", cfg.MaxDelayMs, got)
	}
}

func TestCalculateDelayAppliesJitterBeforeClamping(t *testing.T) {
	cfg := DefaultRetryConfig() // initial 1000ms, factor 2.0, max 60000ms
	// base = 1000 * 2^10 = 1,024,000ms; jittered = 768,000ms, still far
	// above MaxDelayMs, so clamping after jitter must still land on
	// MaxDelayMs. A buggy clamp-then-jitter order would instead clamp base
	// to 60,000ms first and return 60,000*0.75 = 45,000ms.
	got := CalculateDelay(cfg, 10, nil, 0.75)
	if got != cfg.MaxDelayMs {
		t.Fatalf("expected %d, got %d", cfg.MaxDelayMs, got)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxRetries != 2 || cfg.InitialDelayMs != 1000 || cfg.MaxDelayMs != 60_000 || cfg.BackoffFactor != 2.0 {
		t.Fatalf("unexpected default config: %+v", cfg)
	}
}
