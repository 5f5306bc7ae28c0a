package domain

// Supplier — справочные данные поставщика. Ядро оркестрации их только читает;
// изменением справочника занимаются административные процессы вне ядра.
type Supplier struct {
	ID          string
	Name        string
	Description string
}
