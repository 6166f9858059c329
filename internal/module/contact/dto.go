package contact

import (
	"regexp"

	"github.com/innoval-tech/puntual-api/internal/domain"
	"github.com/innoval-tech/puntual-api/internal/pkg"
)

var namePattern = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s]+$`)

// CreateSchema validates POST /contacts bodies.
var CreateSchema = pkg.NewSchema(
	pkg.Field{
		Name: "name", Type: pkg.TypeString, Required: true,
		RequiredMessage: "name is required",
		TypeMessage:     "name must be a string",
		Checks: []pkg.Check{
			pkg.Length(2, 100, "name must be between 2 and 100 characters"),
			pkg.Matches(namePattern, "name may only contain letters and spaces"),
		},
	},
	pkg.Field{
		Name: "email", Type: pkg.TypeString, Required: true,
		RequiredMessage: "email is required",
		TypeMessage:     "email must be a string",
		Checks: []pkg.Check{
			pkg.Email("email format is invalid"),
			pkg.Length(5, 255, "email must be between 5 and 255 characters"),
		},
	},
	pkg.Field{
		Name: "subject", Type: pkg.TypeString, Required: true,
		RequiredMessage: "subject is required",
		TypeMessage:     "subject must be a string",
		Checks:          []pkg.Check{pkg.Length(2, 255, "subject must be between 2 and 255 characters")},
	},
	pkg.Field{
		Name: "terms", Type: pkg.TypeBoolean, Required: true,
		RequiredMessage: "terms is required",
		TypeMessage:     "terms must be a boolean",
	},
	pkg.Field{
		Name: "message", Type: pkg.TypeString, Required: true,
		RequiredMessage: "message is required",
		TypeMessage:     "message must be a string",
		Checks:          []pkg.Check{pkg.Length(10, 1000, "message must be between 10 and 1000 characters")},
	},
)

// Response is the public shape of a contact. Terms and the soft-delete flag
// are not exposed.
type Response struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Subject   string  `json:"subject"`
	Message   string  `json:"message"`
	CreatedAt *string `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt"`
}

// ToResponse converts a domain.Contact to a Response.
func ToResponse(c *domain.Contact) Response {
	return Response{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Subject:   c.Subject,
		Message:   c.Message,
		CreatedAt: pkg.FormatDisplayTime(c.CreatedAt),
		UpdatedAt: pkg.FormatDisplayTime(c.UpdatedAt),
	}
}
