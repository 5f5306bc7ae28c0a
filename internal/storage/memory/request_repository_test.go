package memory

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

func newRequest(id string, createdAt time.Time) domain.Request {
	return domain.Request{
		ID:           id,
		CaseID:       1,
		Summary:      "summary",
		CreationDate: createdAt,
		CreatedBy:    "helen.kelly",
		Status:       domain.RequestStatusQuotationsPending,
		UpdatedAt:    createdAt,
	}
}

func TestRequestRepository_CreateAndGet(t *testing.T) {
	repo := NewRequestRepository()
	now := time.Now().UTC()

	if err := repo.Create(newRequest("req-1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(newRequest("req-1", now)); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	stored, err := repo.Get("req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Summary != "summary" {
		t.Fatalf("unexpected request: %+v", stored)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestRequestRepository_SaveOptimisticLocking(t *testing.T) {
	repo := NewRequestRepository()
	now := time.Now().UTC()

	if err := repo.Create(newRequest("req-1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, err := repo.Get("req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	stored.Summary = "updated"
	if err := repo.Save(stored); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Сохранение с устаревшей версией отклоняется.
	if err := repo.Save(stored); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	fresh, err := repo.Get("req-1")
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if fresh.Version != stored.Version+1 {
		t.Fatalf("expected version bump, got %d", fresh.Version)
	}
	if fresh.Summary != "updated" {
		t.Fatalf("expected updated summary, got %s", fresh.Summary)
	}

	if err := repo.Save(newRequest("missing", now)); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestRequestRepository_ListByCreator(t *testing.T) {
	repo := NewRequestRepository()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		request := newRequest(fmt.Sprintf("req-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(request); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	other := newRequest("req-other", base)
	other.CreatedBy = "walter.bates"
	if err := repo.Create(other); err != nil {
		t.Fatalf("create other: %v", err)
	}

	requests, err := repo.ListByCreator("helen.kelly", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(requests))
	}
	// Новые заявки идут первыми.
	if requests[0].ID != "req-2" || requests[2].ID != "req-0" {
		t.Fatalf("unexpected order: %s .. %s", requests[0].ID, requests[2].ID)
	}

	limited, err := repo.ListByCreator("helen.kelly", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(limited))
	}
}

func TestRequestRepository_NextCaseID(t *testing.T) {
	repo := NewRequestRepository()

	first, err := repo.NextCaseID()
	if err != nil {
		t.Fatalf("next case id: %v", err)
	}
	second, err := repo.NextCaseID()
	if err != nil {
		t.Fatalf("next case id: %v", err)
	}
	if second <= first {
		t.Fatalf("case ids must be monotonic: %d then %d", first, second)
	}
}

func TestRequestRepository_GetReturnsCopy(t *testing.T) {
	repo := NewRequestRepository()
	now := time.Now().UTC()

	request := newRequest("req-1", now)
	completion := now
	request.Status = domain.RequestStatusAborted
	request.CompletionDate = &completion
	if err := repo.Create(request); err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, err := repo.Get("req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	*stored.CompletionDate = stored.CompletionDate.Add(time.Hour)

	again, err := repo.Get("req-1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if !again.CompletionDate.Equal(completion) {
		t.Fatal("stored completion date must be isolated from callers")
	}
}
