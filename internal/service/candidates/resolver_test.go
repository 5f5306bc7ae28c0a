package candidates

import (
	"errors"
	"reflect"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/directory"
)

func TestResolveForQuotation_SortedDeduplicated(t *testing.T) {
	dir := directory.NewMockService()
	dir.Grant("supplier-1", "walter.bates", "giovanna.almeida", "giovanna.almeida", "", "april.sanchez")

	resolver := NewResolver(dir, log.New().WithField("test", t.Name()))
	resolved, err := resolver.ResolveForQuotation(domain.Quotation{ID: "quotation-1", SupplierID: "supplier-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	expected := []string{"april.sanchez", "giovanna.almeida", "walter.bates"}
	if !reflect.DeepEqual(resolved, expected) {
		t.Fatalf("expected %v, got %v", expected, resolved)
	}
}

func TestResolveForQuotation_NoCandidates(t *testing.T) {
	dir := directory.NewMockService()

	resolver := NewResolver(dir, log.New().WithField("test", t.Name()))
	resolved, err := resolver.ResolveForQuotation(domain.Quotation{ID: "quotation-1", SupplierID: "supplier-without-managers"})
	if !errors.Is(err, domain.ErrTaskUnassignable) {
		t.Fatalf("expected ErrTaskUnassignable, got %v", err)
	}
	if resolved != nil {
		t.Fatalf("expected nil candidates, got %v", resolved)
	}
}

func TestResolveForQuotation_DirectoryError(t *testing.T) {
	dir := directory.NewMockService()
	dir.ResolveErr = errors.New("directory unavailable")

	resolver := NewResolver(dir, log.New().WithField("test", t.Name()))
	if _, err := resolver.ResolveForQuotation(domain.Quotation{SupplierID: "supplier-1"}); !errors.Is(err, dir.ResolveErr) {
		t.Fatalf("expected wrapped directory error, got %v", err)
	}
}
