package payment

import (
	"github.com/innoval-tech/puntual-api/internal/domain"
	"github.com/innoval-tech/puntual-api/internal/pkg"
)

// CreateSchema validates POST /payments bodies.
var CreateSchema = pkg.NewSchema(
	pkg.Field{
		Name: "name", Type: pkg.TypeString, Required: true,
		RequiredMessage: "name is required",
		TypeMessage:     "name must be a string",
		Checks:          []pkg.Check{pkg.Length(1, 255, "name must be between 1 and 255 characters")},
	},
	pkg.Field{
		Name: "email", Type: pkg.TypeString, Required: true,
		RequiredMessage: "email is required",
		TypeMessage:     "email must be a string",
		Checks:          []pkg.Check{pkg.Email("email must be a valid address")},
	},
	pkg.Field{
		Name: "phone", Type: pkg.TypeString, Required: true,
		RequiredMessage: "phone is required",
		TypeMessage:     "phone must be a string",
		Checks: []pkg.Check{
			pkg.Length(10, 10, "phone number must contain 10 digits"),
			pkg.Digits("phone number may only contain digits"),
		},
	},
	pkg.Field{
		Name: "documentNumber", Type: pkg.TypeString, Required: true,
		RequiredMessage: "document number is required",
		TypeMessage:     "document number must be a string",
	},
	pkg.Field{
		Name: "amount", Type: pkg.TypeNumber, Required: true,
		RequiredMessage: "amount is required",
		TypeMessage:     "amount must be a number",
		Checks:          []pkg.Check{pkg.Min(0.01, "amount must be greater than 0")},
	},
	pkg.Field{
		Name: "paymentReference", Type: pkg.TypeString, Required: true,
		RequiredMessage: "payment reference is required",
		TypeMessage:     "payment reference must be a string",
	},
	pkg.Field{
		Name: "terms", Type: pkg.TypeBoolean, Required: true,
		RequiredMessage: "terms is required",
		TypeMessage:     "terms must be a boolean",
	},
)

// Response is the public shape of a payment.
type Response struct {
	ID               uint    `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	DocumentNumber   string  `json:"documentNumber"`
	Amount           float64 `json:"amount"`
	PaymentReference string  `json:"paymentReference"`
	Terms            bool    `json:"terms"`
	CreatedAt        *string `json:"createdAt"`
	UpdatedAt        *string `json:"updatedAt"`
}

// ToResponse converts a domain.Payment to a Response.
func ToResponse(p *domain.Payment) Response {
	return Response{
		ID:               p.ID,
		Name:             p.Name,
		Email:            p.Email,
		Phone:            p.Phone,
		DocumentNumber:   p.DocumentNumber,
		Amount:           p.Amount.InexactFloat64(),
		PaymentReference: p.PaymentReference,
		Terms:            p.Terms,
		CreatedAt:        pkg.FormatDisplayTime(p.CreatedAt),
		UpdatedAt:        pkg.FormatDisplayTime(p.UpdatedAt),
	}
}
