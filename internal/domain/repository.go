package domain

// RequestRepository описывает требования к хранилищу заявок.
type RequestRepository interface {
	// Create сохраняет новую заявку. Возвращает ошибку, если запись с таким ID уже существует.
	Create(request Request) error
	// Get возвращает заявку по идентификатору или ErrRequestNotFound, если её нет.
	Get(id string) (Request, error)
	// ListByCreator возвращает заявки инициатора с опциональным ограничением на количество.
	ListByCreator(createdBy string, limit int) ([]Request, error)
	// Save применяет обновления к заявке с учётом optimistic locking.
	Save(request Request) error
	// NextCaseID выдаёт следующий номер дела, монотонный в пределах хранилища.
	NextCaseID() (int64, error)
}

// QuotationRepository описывает требования к хранилищу котировок.
type QuotationRepository interface {
	// CreateBatch атомарно сохраняет весь набор котировок заявки.
	CreateBatch(quotations []Quotation) error
	// Get возвращает котировку или ErrQuotationNotFound, если её нет.
	Get(id string) (Quotation, error)
	// ListByRequest возвращает котировки заявки в порядке создания.
	ListByRequest(requestID string) ([]Quotation, error)
	// Save применяет обновления к котировке с учётом optimistic locking.
	Save(quotation Quotation) error
}

// SupplierRepository описывает доступ к справочнику поставщиков.
type SupplierRepository interface {
	// Create добавляет поставщика (используется сидированием справочных данных).
	Create(supplier Supplier) error
	// Get возвращает поставщика или ErrSupplierNotFound.
	Get(id string) (Supplier, error)
	// FindByName возвращает поставщика по точному имени или ErrSupplierNotFound.
	FindByName(name string) (Supplier, error)
	// FindByIDs возвращает поставщиков в порядке переданных идентификаторов;
	// отсутствие любого из них — ErrSupplierNotFound.
	FindByIDs(ids []string) ([]Supplier, error)
	// List возвращает всех поставщиков в порядке имени.
	List() ([]Supplier, error)
}
