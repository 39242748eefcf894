package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/nurpe/orderflow/internal/model"
)

// Tables are listed in dependency order.
var migrationModels = []interface{}{
	&model.Organization{},
	&model.Product{},
	&model.Token{},
	&model.PriceList{},
	&model.OrderSheet{},
	&model.SalesOrder{},
	&model.PurchaseOrder{},
	&model.Allocation{},
	&model.Shipment{},
	&model.CarrierProfile{},
}

func Migrate(db *gorm.DB) error {
	for i, m := range migrationModels {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
