package crud

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/innoval-tech/puntual-api/internal/domain"
	"github.com/innoval-tech/puntual-api/internal/pkg"
)

// Controller adapts a CRUDService to gin handlers. It is the only layer that
// turns service errors into HTTP responses.
type Controller[D any] struct {
	svc CRUDService[D]
}

// NewController creates a Controller. Panics if svc is nil.
func NewController[D any](svc CRUDService[D]) *Controller[D] {
	if svc == nil {
		panic("crud.NewController: service must not be nil")
	}
	return &Controller[D]{svc: svc}
}

// FindAll handles GET /.
func (h *Controller[D]) FindAll(c *gin.Context) {
	items, err := h.svc.FindAll(c.Request.Context(), ParseFindOptions(c))
	if err != nil {
		pkg.Fail(c, http.StatusInternalServerError, "Error fetching entities", err)
		return
	}
	if items == nil {
		items = []D{}
	}
	c.JSON(http.StatusOK, items)
}

// FindByID handles GET /:id.
func (h *Controller[D]) FindByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := h.svc.FindByID(c.Request.Context(), id)
	if err != nil {
		pkg.Fail(c, http.StatusInternalServerError, "Error fetching entity", err)
		return
	}
	if item == nil {
		pkg.NotFound(c, "Entity not found")
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create handles POST /. The body is taken from the Validate middleware when
// present, otherwise decoded from the request.
func (h *Controller[D]) Create(c *gin.Context) {
	body, ok := requestBody(c)
	if !ok {
		return
	}
	item, err := h.svc.Create(c.Request.Context(), body)
	if err != nil {
		pkg.Fail(c, http.StatusBadRequest, "Error creating entity", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update handles PUT /:id.
func (h *Controller[D]) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, ok := requestBody(c)
	if !ok {
		return
	}
	item, err := h.svc.Update(c.Request.Context(), id, body)
	if err != nil {
		pkg.Fail(c, http.StatusBadRequest, "Error updating entity", err)
		return
	}
	if item == nil {
		pkg.NotFound(c, "Entity not found")
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete handles DELETE /:id.
func (h *Controller[D]) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		pkg.Fail(c, http.StatusInternalServerError, "Error deleting entity", err)
		return
	}
	if !deleted {
		pkg.NotFound(c, "Entity not found")
		return
	}
	c.JSON(http.StatusOK, pkg.MessageResponse{Message: "Entity deleted successfully"})
}

// FindBy handles POST /find with an equality-criteria body.
func (h *Controller[D]) FindBy(c *gin.Context) {
	criteria, ok := pkg.BindObject(c)
	if !ok {
		return
	}
	items, err := h.svc.FindBy(c.Request.Context(), criteria)
	if err != nil {
		pkg.Fail(c, http.StatusInternalServerError, "Error fetching entities", err)
		return
	}
	if items == nil {
		items = []D{}
	}
	c.JSON(http.StatusOK, items)
}

// FindOneBy handles POST /findOne with an equality-criteria body.
func (h *Controller[D]) FindOneBy(c *gin.Context) {
	criteria, ok := pkg.BindObject(c)
	if !ok {
		return
	}
	item, err := h.svc.FindOneBy(c.Request.Context(), criteria)
	if err != nil {
		pkg.Fail(c, http.StatusInternalServerError, "Error fetching entity", err)
		return
	}
	if item == nil {
		pkg.NotFound(c, "Not found")
		return
	}
	c.JSON(http.StatusOK, item)
}

// parseID reads the :id path parameter. On failure it writes a 400 and returns false.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		pkg.Fail(c, http.StatusBadRequest, "Invalid id",
			domain.NewValidationError("id must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

func requestBody(c *gin.Context) (map[string]any, bool) {
	if v, ok := c.Get(validatedBodyKey); ok {
		if body, ok := v.(map[string]any); ok {
			return body, true
		}
	}
	return pkg.BindObject(c)
}
