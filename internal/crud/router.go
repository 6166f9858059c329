package crud

import (
	"github.com/gin-gonic/gin"

	"github.com/innoval-tech/puntual-api/internal/pkg"
)

// validatedBodyKey is the gin context key holding the body produced by Validate.
const validatedBodyKey = "crud.validatedBody"

// Routes describes what BindRoutes wires for one module.
type Routes struct {
	CreateSchema *pkg.Schema
	// UpdateSchema validates PUT /:id. Nil falls back to CreateSchema.
	UpdateSchema *pkg.Schema
	FullCRUD     bool
	// Custom registers module-specific routes on the same group.
	Custom func(g gin.IRoutes)
}

// BindRoutes registers the controller's handlers on r. POST / is always bound
// behind schema validation; the remaining CRUD routes only with FullCRUD.
func BindRoutes[D any](r gin.IRoutes, h *Controller[D], routes Routes) {
	r.POST("", Validate(routes.CreateSchema), h.Create)

	if routes.FullCRUD {
		update := routes.UpdateSchema
		if update == nil {
			update = routes.CreateSchema
		}
		r.GET("", h.FindAll)
		r.GET("/:id", h.FindByID)
		r.PUT("/:id", Validate(update), h.Update)
		r.DELETE("/:id", h.Delete)
		r.POST("/find", h.FindBy)
		r.POST("/findOne", h.FindOneBy)
	}

	if routes.Custom != nil {
		routes.Custom(r)
	}
}

// Validate decodes the JSON body, checks it against schema and stores the
// projected result for the next handler. Server-managed fields (id,
// timestamps, hasDeleted) are dropped before the check; any other undeclared
// field fails validation. A nil schema only enforces a JSON object body.
func Validate(schema *pkg.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := pkg.BindObject(c)
		if !ok {
			return
		}
		if schema != nil {
			validated, errs := schema.Validate(stripProtected(body))
			if errs != nil {
				pkg.ValidationFailed(c, errs)
				return
			}
			body = validated
		}
		c.Set(validatedBodyKey, body)
		c.Next()
	}
}
