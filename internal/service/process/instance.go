package process

import "github.com/bonitasoft-presales/learn-and-go-btt/internal/service/fanout"

// Instance — явный handle запущенного экземпляра процесса. Возвращается из
// StartRequest и передаётся вызывающим кодом там, где исходная система
// полагалась на неявный глобальный реестр экземпляров.
type Instance struct {
	requestID string
	caseID    int64
	handle    *fanout.Handle
}

// RequestID возвращает идентификатор заявки экземпляра.
func (i *Instance) RequestID() string {
	return i.requestID
}

// CaseID возвращает номер дела экземпляра.
func (i *Instance) CaseID() int64 {
	return i.caseID
}

// Handle возвращает join-барьер fan-out котировок.
func (i *Instance) Handle() *fanout.Handle {
	return i.handle
}
