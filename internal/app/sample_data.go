package app

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// sampleSupplier описывает поставщика демонстрационного набора данных
// вместе с аккаунт-менеджерами, отвечающими на запросы котировок.
type sampleSupplier struct {
	name        string
	description string
	managers    []string
}

var sampleSuppliers = []sampleSupplier{
	{
		name:        "Acme Inc.",
		description: "General purpose industrial supplier",
		managers:    []string{"giovanna.almeida"},
	},
	{
		name:        "Duff Co.",
		description: "Beverage and catering supplier",
		managers:    []string{"april.sanchez"},
	},
	{
		name:        "Donut Co.",
		description: "Pastry and snack supplier",
		managers:    []string{"patrick.gardenier"},
	},
}

// SeedSampleData наполняет справочник поставщиков демонстрационными данными
// и выдаёт права менеджерам в справочнике идентичностей.
// Повторный запуск поверх уже сидированного хранилища безопасен.
func SeedSampleData(deps *Dependencies) error {
	for _, sample := range sampleSuppliers {
		supplier, err := deps.Suppliers.FindByName(sample.name)
		if errors.Is(err, domain.ErrSupplierNotFound) {
			supplier = domain.Supplier{
				ID:          uuid.NewString(),
				Name:        sample.name,
				Description: sample.description,
			}
			if createErr := deps.Suppliers.Create(supplier); createErr != nil {
				return fmt.Errorf("seed supplier %q: %w", sample.name, createErr)
			}
			deps.Logger.WithField("supplier", sample.name).Info("sample supplier created")
		} else if err != nil {
			return fmt.Errorf("lookup supplier %q: %w", sample.name, err)
		}

		deps.Directory.Grant(supplier.ID, sample.managers...)
	}

	return nil
}
