package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register failed: %v", err)
	}
}

func TestObserveArbitrationNormalisesOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ObserveArbitration(1500*time.Millisecond, OutcomeReferral)
	ObserveArbitration(-time.Second, "bogus")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	var sawCounter bool
	for _, fam := range families {
		if fam.GetName() == "assessment_engine_arbitrations_total" {
			sawCounter = true
		}
	}
	if !sawCounter {
		t.Fatal("arbitrations counter not gathered")
	}
}
