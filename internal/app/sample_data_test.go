package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSeedSampleData_CreatesSuppliersAndGrants(t *testing.T) {
	deps := NewDependencies(log.WithField("component", "test"))

	if err := SeedSampleData(deps); err != nil {
		t.Fatalf("seed: %v", err)
	}

	suppliers, err := deps.Suppliers.List()
	if err != nil {
		t.Fatalf("list suppliers: %v", err)
	}
	if len(suppliers) != 3 {
		t.Fatalf("expected 3 sample suppliers, got %d", len(suppliers))
	}

	acme, err := deps.Suppliers.FindByName("Acme Inc.")
	if err != nil {
		t.Fatalf("find acme: %v", err)
	}
	managers, err := deps.Directory.CandidatesForSupplier(acme.ID)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(managers) != 1 || managers[0] != "giovanna.almeida" {
		t.Fatalf("unexpected acme managers: %v", managers)
	}
}

func TestSeedSampleData_RerunIsIdempotent(t *testing.T) {
	deps := NewDependencies(log.WithField("component", "test"))

	if err := SeedSampleData(deps); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := SeedSampleData(deps); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	suppliers, err := deps.Suppliers.List()
	if err != nil {
		t.Fatalf("list suppliers: %v", err)
	}
	if len(suppliers) != 3 {
		t.Fatalf("rerun must not duplicate suppliers, got %d", len(suppliers))
	}
}
