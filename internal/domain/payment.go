package domain

import "github.com/shopspring/decimal"

// Payment records a payment notice submitted by a customer.
type Payment struct {
	BaseModel
	Name             string          `gorm:"column:name;size:255;not null" json:"name"`
	Email            string          `gorm:"column:email;size:255;not null" json:"email"`
	Phone            string          `gorm:"column:phone;size:10;not null" json:"phone"`
	DocumentNumber   string          `gorm:"column:documentNumber;size:255;not null" json:"documentNumber"`
	Amount           decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	PaymentReference string          `gorm:"column:paymentReference;size:255;not null" json:"paymentReference"`
	Terms            bool            `gorm:"column:terms;not null" json:"terms"`
}

// TableName pins the table name used by the existing schema.
func (Payment) TableName() string {
	return "payments"
}
