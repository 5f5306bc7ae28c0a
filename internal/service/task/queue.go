package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// Callback — доменный эффект завершения задачи, привязанный при постановке в очередь.
// Ошибка callback оставляет задачу в pending для повторной попытки.
type Callback func(input any) error

// arenaKey однозначно идентифицирует задачу внутри процесса:
// (экземпляр процесса, активность, индекс источника fan-out).
type arenaKey struct {
	processID string
	activity  string
	seedIndex int
}

type entry struct {
	task     domain.HumanTask
	callback Callback
	// inFlight блокирует параллельное завершение одной задачи.
	inFlight bool
}

// Queue — очередь человеческих задач. Задачи выдаются в порядке создания
// в пределах имени активности; завершение каждой задачи одноразово.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*entry
	// order хранит идентификаторы задач в порядке постановки.
	order  []string
	arena  map[arenaKey]string
	logger *log.Entry
}

// NewQueue создаёт пустую очередь задач.
func NewQueue(logger *log.Entry) *Queue {
	if logger == nil {
		logger = log.WithField("component", "task-queue")
	}
	return &Queue{
		entries: make(map[string]*entry),
		arena:   make(map[arenaKey]string),
		logger:  logger,
	}
}

// Enqueue регистрирует задачу и её completion callback.
// Пара (процесс, активность, индекс) должна быть уникальна.
func (q *Queue) Enqueue(task domain.HumanTask, callback Callback) (domain.HumanTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.Status = domain.TaskStatusPending

	key := arenaKey{processID: task.ProcessID, activity: task.ActivityName, seedIndex: task.SeedIndex}
	if _, exists := q.arena[key]; exists {
		return domain.HumanTask{}, domain.ErrTaskAlreadyEnqueued
	}

	q.entries[task.ID] = &entry{task: task, callback: callback}
	q.order = append(q.order, task.ID)
	q.arena[key] = task.ID

	q.logger.WithFields(log.Fields{
		"task_id":    task.ID,
		"process_id": task.ProcessID,
		"activity":   task.ActivityName,
		"seed_index": task.SeedIndex,
	}).Debug("task enqueued")

	return cloneTask(task), nil
}

// Complete выполняет одноразовое завершение задачи: сначала доменный эффект,
// затем фиксация исполнителя. Повторное завершение — ErrTaskAlreadyCompleted.
func (q *Queue) Complete(taskID, actor string, input any) error {
	q.mu.Lock()
	ent, ok := q.entries[taskID]
	if !ok {
		q.mu.Unlock()
		return domain.ErrTaskNotFound
	}
	if ent.task.Status == domain.TaskStatusCompleted || ent.inFlight {
		q.mu.Unlock()
		return domain.ErrTaskAlreadyCompleted
	}
	ent.inFlight = true
	callback := ent.callback
	q.mu.Unlock()

	// Callback выполняется без блокировки очереди: доменный эффект может
	// ставить новые задачи (например, ревью после join).
	if callback != nil {
		if err := callback(input); err != nil {
			q.mu.Lock()
			ent.inFlight = false
			q.mu.Unlock()
			return err
		}
	}

	now := time.Now().UTC()
	q.mu.Lock()
	ent.inFlight = false
	ent.task.Status = domain.TaskStatusCompleted
	ent.task.CompletedAt = &now
	ent.task.CompletedBy = actor
	activity := ent.task.ActivityName
	q.mu.Unlock()

	q.logger.WithFields(log.Fields{
		"task_id":  taskID,
		"actor":    actor,
		"activity": activity,
	}).Debug("task completed")

	return nil
}

// Remove снимает pending-задачу с очереди. Завершённые или исполняемые
// в данный момент задачи снять нельзя — ErrTaskAlreadyCompleted.
func (q *Queue) Remove(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ent, ok := q.entries[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if ent.task.Status == domain.TaskStatusCompleted || ent.inFlight {
		return domain.ErrTaskAlreadyCompleted
	}

	key := arenaKey{processID: ent.task.ProcessID, activity: ent.task.ActivityName, seedIndex: ent.task.SeedIndex}
	delete(q.arena, key)
	delete(q.entries, taskID)
	for i, id := range q.order {
		if id == taskID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}

	q.logger.WithFields(log.Fields{
		"task_id":    taskID,
		"process_id": ent.task.ProcessID,
		"activity":   ent.task.ActivityName,
	}).Debug("task removed")

	return nil
}

// Find возвращает pending-задачи активности в порядке создания.
// Фильтр nil пропускает все задачи.
func (q *Queue) Find(activity string, filter func(domain.HumanTask) bool) []domain.HumanTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]domain.HumanTask, 0)
	for _, id := range q.order {
		ent := q.entries[id]
		if ent.task.ActivityName != activity || ent.task.Status != domain.TaskStatusPending {
			continue
		}
		if filter != nil && !filter(ent.task) {
			continue
		}
		result = append(result, cloneTask(ent.task))
	}
	return result
}

// Get возвращает копию задачи по идентификатору.
func (q *Queue) Get(taskID string) (domain.HumanTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ent, ok := q.entries[taskID]
	if !ok {
		return domain.HumanTask{}, domain.ErrTaskNotFound
	}
	return cloneTask(ent.task), nil
}

// CandidatesOf возвращает множество идентичностей, допущенных к задаче.
func (q *Queue) CandidatesOf(taskID string) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ent, ok := q.entries[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	candidates := make([]string, len(ent.task.Candidates))
	copy(candidates, ent.task.Candidates)
	return candidates, nil
}

// cloneTask копирует задачу вместе со слайсом кандидатов,
// чтобы избежать непредсказуемых мутаций извне.
func cloneTask(task domain.HumanTask) domain.HumanTask {
	copied := task
	copied.Candidates = make([]string, len(task.Candidates))
	copy(copied.Candidates, task.Candidates)
	if task.CompletedAt != nil {
		at := *task.CompletedAt
		copied.CompletedAt = &at
	}
	return copied
}
