package fanout

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/metrics"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/task"
)

// TaskSeed — исходные данные одного экземпляра multi-instance активности.
type TaskSeed struct {
	// QuotationID — доменная проекция, привязанная к задаче.
	QuotationID string
	// Candidates — идентичности, допущенные к исполнению задачи.
	Candidates []string
}

// Completion — доменный эффект завершения одного экземпляра.
// Вызывается до отметки экземпляра в join-барьере; ошибка отменяет отметку.
type Completion func(seedIndex int, quotationID string, input any) error

// Handle отслеживает join-барьер одного fan-out.
// Отметка завершения и проверка полного набора выполняются под одним мьютексом,
// поэтому join срабатывает ровно один раз при любом чередовании завершений.
type Handle struct {
	mu        sync.Mutex
	processID string
	activity  string
	total     int
	completed map[int]struct{}
	joined    bool
	delivered bool
	callback  func()
}

// Remaining возвращает число ещё не завершённых экземпляров.
func (h *Handle) Remaining() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total - len(h.completed)
}

// Total возвращает исходную кардинальность fan-out.
func (h *Handle) Total() int {
	return h.total
}

// OnAllComplete регистрирует callback join. Если join уже произошёл,
// callback вызывается немедленно; гарантия "ровно один раз" сохраняется
// (rendezvous, а не очередь отложенных callback).
func (h *Handle) OnAllComplete(callback func()) {
	h.mu.Lock()
	h.callback = callback
	fire := h.joined && !h.delivered && callback != nil
	if fire {
		h.delivered = true
	}
	h.mu.Unlock()

	if fire {
		callback()
	}
}

// markComplete отмечает экземпляр завершённым. Повторная отметка — no-op.
// Возвращает callback join, если именно эта отметка замкнула барьер.
func (h *Handle) markComplete(seedIndex int) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if seedIndex < 0 || seedIndex >= h.total {
		return nil, domain.ErrUnknownFanOutInstance
	}
	if _, done := h.completed[seedIndex]; done {
		return nil, nil
	}
	h.completed[seedIndex] = struct{}{}

	if len(h.completed) == h.total && !h.joined {
		h.joined = true
		if h.callback != nil && !h.delivered {
			h.delivered = true
			return h.callback, nil
		}
	}
	return nil, nil
}

// Orchestrator порождает N параллельных экземпляров одной активности
// и освобождает join только после завершения всех N.
type Orchestrator struct {
	queue   *task.Queue
	metrics *metrics.ProcessMetrics
	logger  *log.Entry
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
// metrics допускает nil (вариант для тестов).
func NewOrchestrator(queue *task.Queue, m *metrics.ProcessMetrics, logger *log.Entry) *Orchestrator {
	if logger == nil {
		logger = log.WithField("component", "fanout")
	}
	return &Orchestrator{queue: queue, metrics: m, logger: logger}
}

// SpawnFanOut создаёт по одной задаче активности на каждый seed и возвращает
// handle join-барьера. Пустой набор seeds — ошибка вызывающего (ErrEmptyFanOut).
func (o *Orchestrator) SpawnFanOut(processID, activity string, seeds []TaskSeed, complete Completion) (*Handle, error) {
	if len(seeds) == 0 {
		return nil, domain.ErrEmptyFanOut
	}

	handle := &Handle{
		processID: processID,
		activity:  activity,
		total:     len(seeds),
		completed: make(map[int]struct{}, len(seeds)),
	}

	enqueued := make([]string, 0, len(seeds))
	for idx, seed := range seeds {
		seedIndex := idx
		quotationID := seed.QuotationID
		humanTask := domain.HumanTask{
			ProcessID:    processID,
			ActivityName: activity,
			SeedIndex:    seedIndex,
			QuotationID:  quotationID,
			Candidates:   seed.Candidates,
		}
		callback := func(input any) error {
			if complete != nil {
				if err := complete(seedIndex, quotationID, input); err != nil {
					return err
				}
			}
			return o.ReportInstanceComplete(handle, seedIndex)
		}
		created, err := o.queue.Enqueue(humanTask, callback)
		if err != nil {
			// Частично раскрытый fan-out снимается целиком: барьер без
			// полного набора экземпляров никогда бы не сработал.
			o.rollback(processID, activity, enqueued)
			return nil, err
		}
		enqueued = append(enqueued, created.ID)
	}

	if o.metrics != nil {
		o.metrics.RecordFanOutSpawned(len(seeds))
	}
	o.logger.WithFields(log.Fields{
		"process_id": processID,
		"activity":   activity,
		"instances":  len(seeds),
	}).Info("fan-out spawned")

	return handle, nil
}

// rollback снимает с очереди задачи частично раскрытого fan-out.
func (o *Orchestrator) rollback(processID, activity string, taskIDs []string) {
	for _, taskID := range taskIDs {
		if err := o.queue.Remove(taskID); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"process_id": processID,
				"activity":   activity,
				"task_id":    taskID,
			}).Warn("failed to remove partially spawned task")
		}
	}
}

// ReportInstanceComplete отмечает завершение экземпляра в join-барьере.
// Повторные отчёты по тому же индексу поглощаются как идемпотентные.
func (o *Orchestrator) ReportInstanceComplete(handle *Handle, seedIndex int) error {
	fire, err := handle.markComplete(seedIndex)
	if err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"process_id": handle.processID,
			"seed_index": seedIndex,
		}).Warn("fan-out completion report rejected")
		return err
	}
	if fire == nil {
		return nil
	}

	if o.metrics != nil {
		o.metrics.RecordFanOutJoined()
	}
	o.logger.WithFields(log.Fields{
		"process_id": handle.processID,
		"activity":   handle.activity,
		"instances":  handle.total,
	}).Info("fan-out join fired")

	// Callback вызывается вне мьютекса handle: он ставит следующую задачу процесса.
	fire()
	return nil
}
