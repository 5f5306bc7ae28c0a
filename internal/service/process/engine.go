package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/messaging/kafka"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/metrics"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/candidates"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/fanout"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/task"
)

const (
	timelineEventRequestStatusChanged = "RequestStatusChanged"
	timelineEventQuotationCompleted   = "QuotationCompleted"
	timelineEventRequestCompleted     = "RequestCompleted"
	timelineEventRequestAborted       = "RequestAborted"
)

// Engine — конечный автомат экземпляра процесса закупки.
// Ведёт заявку от старта через сбор котировок и ревью до конечного статуса.
// Engine никогда не блокируется в ожидании исполнителей: состояние
// сохраняется, продвижение происходит на очередном внешнем вызове.
type Engine struct {
	requests   domain.RequestRepository
	quotations domain.QuotationRepository
	suppliers  domain.SupplierRepository
	resolver   *candidates.Resolver
	fanout     *fanout.Orchestrator
	queue      *task.Queue
	outbox     domain.OutboxRepository
	timeline   domain.TimelineRepository
	logger     *log.Entry
	metrics    *metrics.ProcessMetrics
	// kafkaProducer — опциональный producer для event-driven интеграций.
	kafkaProducer *kafka.Producer

	mu sync.Mutex
	// locks сериализует переходы по каждой заявке; заявки независимы,
	// межзаявочных блокировок нет.
	locks     map[string]*sync.Mutex
	instances map[string]*Instance
}

// NewEngine создаёт рабочий экземпляр конечного автомата.
func NewEngine(
	requests domain.RequestRepository,
	quotations domain.QuotationRepository,
	suppliers domain.SupplierRepository,
	resolver *candidates.Resolver,
	orchestrator *fanout.Orchestrator,
	queue *task.Queue,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Engine {
	return newEngine(requests, quotations, suppliers, resolver, orchestrator, queue, outbox, timeline, nil, logger, metrics.NewProcessMetrics())
}

// NewEngineWithKafka создаёт конечный автомат с Kafka producer.
func NewEngineWithKafka(
	requests domain.RequestRepository,
	quotations domain.QuotationRepository,
	suppliers domain.SupplierRepository,
	resolver *candidates.Resolver,
	orchestrator *fanout.Orchestrator,
	queue *task.Queue,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	producer *kafka.Producer,
	logger *log.Entry,
) *Engine {
	return newEngine(requests, quotations, suppliers, resolver, orchestrator, queue, outbox, timeline, producer, logger, metrics.NewProcessMetrics())
}

// NewEngineWithoutMetrics создаёт конечный автомат без метрик (для тестов).
func NewEngineWithoutMetrics(
	requests domain.RequestRepository,
	quotations domain.QuotationRepository,
	suppliers domain.SupplierRepository,
	resolver *candidates.Resolver,
	orchestrator *fanout.Orchestrator,
	queue *task.Queue,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Engine {
	return newEngine(requests, quotations, suppliers, resolver, orchestrator, queue, outbox, timeline, nil, logger, nil)
}

func newEngine(
	requests domain.RequestRepository,
	quotations domain.QuotationRepository,
	suppliers domain.SupplierRepository,
	resolver *candidates.Resolver,
	orchestrator *fanout.Orchestrator,
	queue *task.Queue,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	producer *kafka.Producer,
	logger *log.Entry,
	m *metrics.ProcessMetrics,
) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "process-engine")
	}
	return &Engine{
		requests:      requests,
		quotations:    quotations,
		suppliers:     suppliers,
		resolver:      resolver,
		fanout:        orchestrator,
		queue:         queue,
		outbox:        outbox,
		timeline:      timeline,
		logger:        logger,
		metrics:       m,
		kafkaProducer: producer,
		locks:         make(map[string]*sync.Mutex),
		instances:     make(map[string]*Instance),
	}
}

// StartRequest запускает экземпляр процесса: сохраняет заявку, создаёт по
// котировке на каждого поставщика и раскрывает fan-out задач "Complete
// quotation". Возвращает явный handle экземпляра вместо глобального реестра.
func (e *Engine) StartRequest(createdBy, summary, description string, supplierIDs []string) (*Instance, error) {
	if createdBy == "" {
		return nil, domain.ErrCreatedByRequired
	}
	if summary == "" {
		return nil, domain.ErrSummaryRequired
	}
	if len(supplierIDs) == 0 {
		// Пустой список поставщиков — ошибка вызывающего, а не тихий no-op.
		return nil, domain.ErrEmptyFanOut
	}

	// На пару (заявка, поставщик) создаётся ровно одна котировка: повторы
	// в списке схлопываются с сохранением порядка первого вхождения.
	supplierIDs = dedupPreservingOrder(supplierIDs)

	suppliers, err := e.suppliers.FindByIDs(supplierIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve suppliers: %w", err)
	}

	caseID, err := e.requests.NextCaseID()
	if err != nil {
		return nil, fmt.Errorf("allocate case id: %w", err)
	}

	now := time.Now().UTC()
	request := domain.Request{
		ID:           uuid.NewString(),
		CaseID:       caseID,
		Summary:      summary,
		Description:  description,
		CreationDate: now,
		CreatedBy:    createdBy,
		Status:       domain.RequestStatusQuotationsPending,
		UpdatedAt:    now,
	}
	if err := e.requests.Create(request); err != nil {
		return nil, fmt.Errorf("persist request: %w", err)
	}

	quotations := make([]domain.Quotation, 0, len(suppliers))
	for _, supplier := range suppliers {
		quotations = append(quotations, domain.Quotation{
			ID:         uuid.NewString(),
			RequestID:  request.ID,
			SupplierID: supplier.ID,
			Status:     domain.QuotationStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if err := e.quotations.CreateBatch(quotations); err != nil {
		return nil, fmt.Errorf("persist quotations: %w", err)
	}

	seeds := make([]fanout.TaskSeed, 0, len(quotations))
	for _, quotation := range quotations {
		resolved, err := e.resolver.ResolveForQuotation(quotation)
		if err != nil {
			if errors.Is(err, domain.ErrTaskUnassignable) {
				// Задача создаётся без кандидатов; эскалация — забота внешней
				// политики назначения.
				resolved = nil
			} else {
				return nil, err
			}
		}
		seeds = append(seeds, fanout.TaskSeed{QuotationID: quotation.ID, Candidates: resolved})
	}

	handle, err := e.fanout.SpawnFanOut(request.ID, domain.ActivityCompleteQuotation, seeds, e.completeQuotationInstance)
	if err != nil {
		return nil, err
	}
	handle.OnAllComplete(func() {
		e.onQuotationsJoined(request.ID, createdBy)
	})

	if e.metrics != nil {
		e.metrics.RecordRequestStarted()
	}
	e.emitEvent(request.ID, timelineEventRequestStatusChanged, map[string]any{
		"status":     string(request.Status),
		"created_by": createdBy,
		"suppliers":  len(suppliers),
		"ts":         now.Format(time.RFC3339Nano),
	})
	e.publishProcessEvent(kafka.EventTypeProcessStarted, request.ID, map[string]any{
		"created_by": createdBy,
		"summary":    summary,
		"suppliers":  len(suppliers),
	})

	instance := &Instance{requestID: request.ID, caseID: caseID, handle: handle}
	e.mu.Lock()
	e.instances[request.ID] = instance
	e.mu.Unlock()

	e.logger.WithFields(log.Fields{
		"request_id": request.ID,
		"case_id":    caseID,
		"suppliers":  len(suppliers),
	}).Info("procurement request started")

	return instance, nil
}

// ExecuteTask завершает человеческую задачу от имени исполнителя.
// Доменный эффект определяется callback, привязанным при постановке задачи.
func (e *Engine) ExecuteTask(taskID, actor string, input any) error {
	return e.queue.Complete(taskID, actor, input)
}

// ListPendingTasks возвращает pending-задачи активности в порядке создания.
func (e *Engine) ListPendingTasks(activity string, filter func(domain.HumanTask) bool) []domain.HumanTask {
	return e.queue.Find(activity, filter)
}

// RequestStatus возвращает текущий статус заявки.
func (e *Engine) RequestStatus(requestID string) (domain.RequestStatus, error) {
	request, err := e.requests.Get(requestID)
	if err != nil {
		return "", err
	}
	return request.Status, nil
}

// Instance возвращает handle запущенного экземпляра процесса, если он
// существует в этом engine.
func (e *Engine) Instance(requestID string) (*Instance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	instance, ok := e.instances[requestID]
	return instance, ok
}

// Queue открывает очередь задач для чтения кандидатов и поиска задач.
func (e *Engine) Queue() *task.Queue {
	return e.queue
}

// completeQuotationInstance — доменный эффект задачи "Complete quotation".
// Вызывается очередью задач до отметки экземпляра в join-барьере.
func (e *Engine) completeQuotationInstance(seedIndex int, quotationID string, input any) error {
	quotationInput, ok := input.(domain.QuotationTaskInput)
	if !ok {
		return fmt.Errorf("unexpected input contract for quotation task: %T", input)
	}

	stored, err := e.quotations.Get(quotationID)
	if err != nil {
		return err
	}

	lock := e.lockFor(stored.RequestID)
	lock.Lock()
	defer lock.Unlock()

	request, err := e.requests.Get(stored.RequestID)
	if err != nil {
		return err
	}
	if request.Status != domain.RequestStatusQuotationsPending {
		return fmt.Errorf("%w: complete quotation in status %q", domain.ErrInvalidStateTransition, request.Status)
	}

	// Перечитываем котировку под блокировкой заявки.
	quotation, err := e.quotations.Get(quotationID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := quotation.Complete(quotationInput.HasSupplierAccepted, quotationInput.Price, quotationInput.Comments, now); err != nil {
		return err
	}
	if err := e.quotations.Save(quotation); err != nil {
		return fmt.Errorf("persist quotation: %w", err)
	}

	if e.metrics != nil {
		e.metrics.RecordTaskCompleted(domain.ActivityCompleteQuotation)
	}
	e.emitEvent(request.ID, timelineEventQuotationCompleted, map[string]any{
		"quotation_id": quotation.ID,
		"supplier_id":  quotation.SupplierID,
		"accepted":     quotation.HasSupplierAccepted,
		"price":        quotation.ProposedPrice,
		"ts":           now.Format(time.RFC3339Nano),
	})
	e.publishProcessEvent(kafka.EventTypeQuotationCompleted, request.ID, map[string]any{
		"quotation_id": quotation.ID,
		"supplier_id":  quotation.SupplierID,
		"seed_index":   seedIndex,
	})

	return nil
}

// onQuotationsJoined — callback join-барьера: все котировки собраны,
// заявка переходит в ревью, инициатору ставится единственная задача ревью.
func (e *Engine) onQuotationsJoined(requestID, createdBy string) {
	lock := e.lockFor(requestID)
	lock.Lock()

	request, err := e.requests.Get(requestID)
	if err != nil {
		lock.Unlock()
		e.logger.WithError(err).WithField("request_id", requestID).Error("request not found after join")
		return
	}
	if err := e.updateStatus(&request, domain.RequestStatusReviewPending); err != nil {
		lock.Unlock()
		e.logger.WithError(err).WithField("request_id", requestID).Error("failed to advance request to review")
		return
	}
	lock.Unlock()

	// Наблюдаемое поведение: задачу ревью получает инициатор заявки.
	reviewTask := domain.HumanTask{
		ProcessID:    requestID,
		ActivityName: domain.ActivityReviewQuotations,
		Candidates:   []string{createdBy},
	}
	if _, err := e.queue.Enqueue(reviewTask, func(input any) error {
		return e.completeReview(requestID, input)
	}); err != nil {
		e.logger.WithError(err).WithField("request_id", requestID).Error("failed to enqueue review task")
		return
	}

	e.publishProcessEvent(kafka.EventTypeProcessReviewPending, requestID, map[string]any{
		"reviewer": createdBy,
	})
	e.logger.WithField("request_id", requestID).Info("all quotations collected, review task created")
}

// completeReview — доменный эффект задачи ревью. Пустой выбор прерывает
// заявку; выбор неприглашённого поставщика отклоняется, заявка остаётся
// в ревью для исправления.
func (e *Engine) completeReview(requestID string, input any) error {
	reviewInput, ok := input.(domain.ReviewTaskInput)
	if !ok {
		return fmt.Errorf("unexpected input contract for review task: %T", input)
	}

	lock := e.lockFor(requestID)
	lock.Lock()
	defer lock.Unlock()

	request, err := e.requests.Get(requestID)
	if err != nil {
		return err
	}
	if request.Status != domain.RequestStatusReviewPending {
		return fmt.Errorf("%w: review in status %q", domain.ErrInvalidStateTransition, request.Status)
	}

	now := time.Now().UTC()
	selected := strings.TrimSpace(reviewInput.SelectedSupplierID)

	if selected == "" {
		request.CompletionDate = &now
		if err := e.updateStatus(&request, domain.RequestStatusAborted); err != nil {
			return err
		}
		if e.metrics != nil {
			e.metrics.RecordTaskCompleted(domain.ActivityReviewQuotations)
			e.metrics.RecordRequestAborted()
			e.metrics.RecordRequestDuration(now.Sub(request.CreationDate))
		}
		e.emitEvent(requestID, timelineEventRequestAborted, map[string]any{
			"ts": now.Format(time.RFC3339Nano),
		})
		e.publishProcessEvent(kafka.EventTypeProcessAborted, requestID, nil)
		e.releaseRequest(requestID)
		e.logger.WithField("request_id", requestID).Info("procurement request aborted, no supplier selected")
		return nil
	}

	quotations, err := e.quotations.ListByRequest(requestID)
	if err != nil {
		return fmt.Errorf("list quotations: %w", err)
	}
	invited := false
	for _, quotation := range quotations {
		if quotation.SupplierID == selected {
			invited = true
			break
		}
	}
	if !invited {
		return fmt.Errorf("%w: %s", domain.ErrInvalidSupplierSelection, selected)
	}

	request.SelectedSupplierID = selected
	request.CompletionDate = &now
	if err := e.updateStatus(&request, domain.RequestStatusCompleted); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RecordTaskCompleted(domain.ActivityReviewQuotations)
		e.metrics.RecordRequestCompleted()
		e.metrics.RecordRequestDuration(now.Sub(request.CreationDate))
	}
	e.emitEvent(requestID, timelineEventRequestCompleted, map[string]any{
		"selected_supplier_id": selected,
		"ts":                   now.Format(time.RFC3339Nano),
	})
	e.publishProcessEvent(kafka.EventTypeProcessCompleted, requestID, map[string]any{
		"selected_supplier_id": selected,
	})
	e.releaseRequest(requestID)
	e.logger.WithFields(log.Fields{
		"request_id":  requestID,
		"supplier_id": selected,
	}).Info("procurement request completed")

	return nil
}

// dedupPreservingOrder убирает повторы идентификаторов, сохраняя порядок
// первого вхождения.
func dedupPreservingOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// lockFor возвращает мьютекс критической секции заявки.
func (e *Engine) lockFor(requestID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[requestID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[requestID] = lock
	}
	return lock
}

// releaseRequest убирает бухгалтерию заявки, достигшей конечного статуса.
// Дальнейшие переходы всё равно отклоняются графом состояний, а удаление
// записей не даёт картам locks и instances расти бесконечно.
func (e *Engine) releaseRequest(requestID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.locks, requestID)
	delete(e.instances, requestID)
}

// updateStatus меняет статус заявки по графу переходов и сохраняет запись.
// Конфликт версий повторяется с exponential backoff; значения полей заявки
// при этом сохраняются, из свежей записи берутся только версия и статус.
func (e *Engine) updateStatus(request *domain.Request, next domain.RequestStatus) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		if !request.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, request.Status, next)
		}

		previousStatus := request.Status
		request.Status = next
		request.UpdatedAt = time.Now().UTC()

		if err := e.requests.Save(*request); err != nil {
			request.Status = previousStatus
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				e.logger.WithFields(log.Fields{
					"request_id": request.ID,
					"attempt":    attempt + 1,
					"version":    request.Version,
				}).Warn("version conflict detected, retrying")

				fresh, loadErr := e.requests.Get(request.ID)
				if loadErr != nil {
					e.logger.WithError(loadErr).WithField("request_id", request.ID).Error("failed to reload request after conflict")
					return loadErr
				}
				request.Version = fresh.Version
				request.Status = fresh.Status

				time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
				continue
			}

			e.logger.WithError(err).WithFields(log.Fields{
				"request_id": request.ID,
				"attempt":    attempt + 1,
			}).Error("failed to persist status")
			return err
		}

		request.Version++
		e.emitEvent(request.ID, timelineEventRequestStatusChanged, map[string]any{
			"status":     string(request.Status),
			"updated_at": request.UpdatedAt.Format(time.RFC3339Nano),
			"ts":         request.UpdatedAt.Format(time.RFC3339Nano),
		})
		return nil
	}

	return domain.ErrVersionConflict
}

// emitEvent пишет событие в transactional outbox и в timeline заявки.
func (e *Engine) emitEvent(requestID, eventType string, payload map[string]any) {
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["request_id"] = requestID

	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"request_id": requestID,
			"event":      eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "request",
		AggregateID:   requestID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := e.outbox.Enqueue(msg); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"request_id": requestID,
			"event":      eventType,
		}).Error("enqueue event failed")
	} else if e.metrics != nil {
		e.metrics.RecordOutboxEvent()
	}

	if e.timeline == nil {
		return
	}
	occurred := time.Now().UTC()
	if ts, ok := payload["ts"].(string); ok {
		if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
			occurred = parsed
		}
	}
	event := domain.TimelineEvent{
		RequestID: requestID,
		Type:      eventType,
		Occurred:  occurred,
	}
	if err := e.timeline.Append(event); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"request_id": requestID,
			"event":      eventType,
		}).Warn("append timeline event failed")
	} else if e.metrics != nil {
		e.metrics.RecordTimelineEvent()
	}
}

// publishProcessEvent публикует событие процесса в Kafka (если producer настроен).
func (e *Engine) publishProcessEvent(eventType kafka.EventType, requestID string, metadata map[string]any) {
	if e.kafkaProducer == nil {
		return
	}

	event := kafka.NewProcessEvent(eventType, requestID, metadata)
	if err := e.kafkaProducer.PublishEvent(kafka.TopicProcessEvents, requestID, event); err != nil {
		// Kafka опциональна: ошибка публикации не прерывает процесс.
		e.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"request_id": requestID,
		}).Warn("failed to publish process event to kafka")
	}
}
