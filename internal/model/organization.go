package model

import "github.com/google/uuid"

const (
	OrganizationSupplier = "SUPPLIER"
	OrganizationCarrier  = "CARRIER"
	OrganizationCustomer = "CUSTOMER"
)

type Organization struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Type         string    `gorm:"size:32;not null;index" json:"type"`
	BIN          string    `gorm:"size:32" json:"bin,omitempty"`
	HeadFullName string    `gorm:"size:255" json:"head_full_name,omitempty"`
	Address      string    `gorm:"size:500" json:"address,omitempty"`
	Phone        string    `gorm:"size:64" json:"phone,omitempty"`
}
