package fanout

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/task"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *task.Queue) {
	t.Helper()
	logger := log.New().WithField("test", t.Name())
	queue := task.NewQueue(logger)
	return NewOrchestrator(queue, nil, logger), queue
}

func makeSeeds(n int) []TaskSeed {
	seeds := make([]TaskSeed, 0, n)
	for i := 0; i < n; i++ {
		seeds = append(seeds, TaskSeed{
			QuotationID: fmt.Sprintf("quotation-%d", i),
			Candidates:  []string{fmt.Sprintf("manager-%d", i)},
		})
	}
	return seeds
}

func TestSpawnFanOut_EnqueueFailureRollsBackPartialTasks(t *testing.T) {
	orch, queue := newTestOrchestrator(t)

	// Чужая задача занимает тройку (процесс, активность, индекс 1):
	// раскрытие второго seed упадёт на конфликте арены.
	blocker, err := queue.Enqueue(domain.HumanTask{
		ProcessID:    "req-1",
		ActivityName: domain.ActivityCompleteQuotation,
		SeedIndex:    1,
		QuotationID:  "quotation-blocker",
	}, nil)
	if err != nil {
		t.Fatalf("enqueue blocker: %v", err)
	}

	handle, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, makeSeeds(3), nil)
	if !errors.Is(err, domain.ErrTaskAlreadyEnqueued) {
		t.Fatalf("expected ErrTaskAlreadyEnqueued, got %v", err)
	}
	if handle != nil {
		t.Fatal("expected no handle on failed spawn")
	}

	// Задача нулевого seed снята: в очереди остаётся только чужая задача.
	tasks := queue.Find(domain.ActivityCompleteQuotation, nil)
	if len(tasks) != 1 || tasks[0].ID != blocker.ID {
		t.Fatalf("expected only the pre-existing task after rollback, got %d tasks", len(tasks))
	}
}

func TestSpawnFanOut_CreatesTaskPerSeed(t *testing.T) {
	orch, queue := newTestOrchestrator(t)

	handle, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, makeSeeds(3), nil)
	if err != nil {
		t.Fatalf("spawn fan-out: %v", err)
	}

	if handle.Total() != 3 {
		t.Fatalf("expected total 3, got %d", handle.Total())
	}
	if handle.Remaining() != 3 {
		t.Fatalf("expected remaining 3, got %d", handle.Remaining())
	}

	tasks := queue.Find(domain.ActivityCompleteQuotation, nil)
	if len(tasks) != 3 {
		t.Fatalf("expected 3 pending tasks, got %d", len(tasks))
	}
	for i, pending := range tasks {
		if pending.SeedIndex != i {
			t.Fatalf("expected seed index %d, got %d", i, pending.SeedIndex)
		}
		if pending.QuotationID != fmt.Sprintf("quotation-%d", i) {
			t.Fatalf("unexpected quotation binding: %s", pending.QuotationID)
		}
		if len(pending.Candidates) != 1 || pending.Candidates[0] != fmt.Sprintf("manager-%d", i) {
			t.Fatalf("unexpected candidates: %v", pending.Candidates)
		}
	}
}

func TestSpawnFanOut_EmptySeeds(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	if _, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, nil, nil); !errors.Is(err, domain.ErrEmptyFanOut) {
		t.Fatalf("expected ErrEmptyFanOut, got %v", err)
	}
}

func TestJoin_FiresOnceAfterAllInstances(t *testing.T) {
	// Порядок завершения не должен влиять на момент join.
	orders := [][]int{
		{0, 1, 2},
		{2, 0, 1},
		{1, 2, 0},
	}

	for _, order := range orders {
		orch, _ := newTestOrchestrator(t)
		handle, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, makeSeeds(3), nil)
		if err != nil {
			t.Fatalf("spawn fan-out: %v", err)
		}

		var joins int32
		handle.OnAllComplete(func() { atomic.AddInt32(&joins, 1) })

		for i, seedIndex := range order {
			if err := orch.ReportInstanceComplete(handle, seedIndex); err != nil {
				t.Fatalf("report instance %d: %v", seedIndex, err)
			}
			expectJoined := i == len(order)-1
			if got := atomic.LoadInt32(&joins) == 1; got != expectJoined {
				t.Fatalf("order %v: after %d completions joined=%v", order, i+1, got)
			}
		}

		if handle.Remaining() != 0 {
			t.Fatalf("expected no remaining instances, got %d", handle.Remaining())
		}
	}
}

func TestReportInstanceComplete_DuplicateIsNoOp(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	handle, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, makeSeeds(2), nil)
	if err != nil {
		t.Fatalf("spawn fan-out: %v", err)
	}

	var joins int32
	handle.OnAllComplete(func() { atomic.AddInt32(&joins, 1) })

	if err := orch.ReportInstanceComplete(handle, 0); err != nil {
		t.Fatalf("first report: %v", err)
	}
	if err := orch.ReportInstanceComplete(handle, 0); err != nil {
		t.Fatalf("duplicate report must be no-op, got %v", err)
	}
	if joins != 0 {
		t.Fatal("join must not fire while an instance is outstanding")
	}

	if err := orch.ReportInstanceComplete(handle, 1); err != nil {
		t.Fatalf("final report: %v", err)
	}
	if joins != 1 {
		t.Fatalf("expected exactly one join, got %d", joins)
	}

	// Поздние дубликаты после join также поглощаются.
	if err := orch.ReportInstanceComplete(handle, 1); err != nil {
		t.Fatalf("post-join duplicate: %v", err)
	}
	if joins != 1 {
		t.Fatalf("join fired again on duplicate, total %d", joins)
	}
}

func TestReportInstanceComplete_UnknownIndex(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	handle, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, makeSeeds(2), nil)
	if err != nil {
		t.Fatalf("spawn fan-out: %v", err)
	}

	for _, seedIndex := range []int{-1, 2, 100} {
		if err := orch.ReportInstanceComplete(handle, seedIndex); !errors.Is(err, domain.ErrUnknownFanOutInstance) {
			t.Fatalf("index %d: expected ErrUnknownFanOutInstance, got %v", seedIndex, err)
		}
	}
}

func TestOnAllComplete_LateRegistrationFiresImmediately(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	handle, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, makeSeeds(2), nil)
	if err != nil {
		t.Fatalf("spawn fan-out: %v", err)
	}

	for seedIndex := 0; seedIndex < 2; seedIndex++ {
		if err := orch.ReportInstanceComplete(handle, seedIndex); err != nil {
			t.Fatalf("report instance %d: %v", seedIndex, err)
		}
	}

	var joins int32
	handle.OnAllComplete(func() { atomic.AddInt32(&joins, 1) })
	if joins != 1 {
		t.Fatalf("expected immediate join delivery, got %d", joins)
	}

	// Повторная регистрация не доставляет join второй раз.
	handle.OnAllComplete(func() { atomic.AddInt32(&joins, 1) })
	if joins != 1 {
		t.Fatalf("join delivered twice, total %d", joins)
	}
}

func TestJoin_ConcurrentCompletions(t *testing.T) {
	const instances = 32

	orch, _ := newTestOrchestrator(t)
	handle, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, makeSeeds(instances), nil)
	if err != nil {
		t.Fatalf("spawn fan-out: %v", err)
	}

	var joins int32
	handle.OnAllComplete(func() { atomic.AddInt32(&joins, 1) })

	var wg sync.WaitGroup
	for seedIndex := 0; seedIndex < instances; seedIndex++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			// Каждый экземпляр отчитывается дважды, имитируя гонку повторов.
			_ = orch.ReportInstanceComplete(handle, idx)
			_ = orch.ReportInstanceComplete(handle, idx)
		}(seedIndex)
	}
	wg.Wait()

	if joins != 1 {
		t.Fatalf("expected exactly one join under concurrency, got %d", joins)
	}
	if handle.Remaining() != 0 {
		t.Fatalf("expected no remaining instances, got %d", handle.Remaining())
	}
}

func TestCompletion_ErrorCancelsMark(t *testing.T) {
	orch, queue := newTestOrchestrator(t)

	completionErr := errors.New("domain effect failed")
	failing := true
	handle, err := orch.SpawnFanOut("req-1", domain.ActivityCompleteQuotation, makeSeeds(1), func(seedIndex int, quotationID string, input any) error {
		if failing {
			return completionErr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("spawn fan-out: %v", err)
	}

	var joins int32
	handle.OnAllComplete(func() { atomic.AddInt32(&joins, 1) })

	tasks := queue.Find(domain.ActivityCompleteQuotation, nil)
	if len(tasks) != 1 {
		t.Fatalf("expected single task, got %d", len(tasks))
	}

	if err := queue.Complete(tasks[0].ID, "manager-0", nil); !errors.Is(err, completionErr) {
		t.Fatalf("expected completion error, got %v", err)
	}
	if joins != 0 {
		t.Fatal("join must not fire after failed completion")
	}
	if handle.Remaining() != 1 {
		t.Fatalf("failed completion must not mark the instance, remaining %d", handle.Remaining())
	}

	// Задача осталась в pending и допускает повторную попытку.
	failing = false
	if err := queue.Complete(tasks[0].ID, "manager-0", nil); err != nil {
		t.Fatalf("retry completion: %v", err)
	}
	if joins != 1 {
		t.Fatalf("expected join after successful retry, got %d", joins)
	}
}
