package version

import "fmt"

// Заполняются при сборке через -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Version возвращает семантическую версию сборки.
func Version() string { return version }

// String возвращает строку с полными сведениями о сборке.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
