package crud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoval-tech/puntual-api/internal/domain"
	"github.com/innoval-tech/puntual-api/internal/pkg"
)

// mockService is a CRUDService[widgetDTO] with canned results and error injection.
type mockService struct {
	items   []widgetDTO
	item    *widgetDTO
	deleted bool
	err     error

	gotOpts     FindOptions
	gotID       uint
	gotBody     map[string]any
	gotCriteria map[string]any
}

func (m *mockService) FindAll(_ context.Context, opts FindOptions) ([]widgetDTO, error) {
	m.gotOpts = opts
	return m.items, m.err
}
func (m *mockService) FindByID(_ context.Context, id uint) (*widgetDTO, error) {
	m.gotID = id
	return m.item, m.err
}
func (m *mockService) FindBy(_ context.Context, c map[string]any) ([]widgetDTO, error) {
	m.gotCriteria = c
	return m.items, m.err
}
func (m *mockService) FindOneBy(_ context.Context, c map[string]any) (*widgetDTO, error) {
	m.gotCriteria = c
	return m.item, m.err
}
func (m *mockService) Create(_ context.Context, body map[string]any) (*widgetDTO, error) {
	m.gotBody = body
	return m.item, m.err
}
func (m *mockService) Update(_ context.Context, id uint, body map[string]any) (*widgetDTO, error) {
	m.gotID, m.gotBody = id, body
	return m.item, m.err
}
func (m *mockService) Delete(_ context.Context, id uint) (bool, error) {
	m.gotID = id
	return m.deleted, m.err
}

// newControllerRouter mounts every route so each handler can be reached.
func newControllerRouter(svc CRUDService[widgetDTO]) *gin.Engine {
	r := gin.New()
	BindRoutes(r.Group("/widgets"), NewController(svc), Routes{
		CreateSchema: widgetSchema,
		UpdateSchema: widgetSchema.Partial(),
		FullCRUD:     true,
	})
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkg.ErrorResponse {
	t.Helper()
	var resp pkg.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

var errService = errors.New("db down")

func TestNewController_NilService(t *testing.T) {
	assert.Panics(t, func() { NewController[widgetDTO](nil) })
}

func TestController_StatusTable(t *testing.T) {
	found := &widgetDTO{ID: 1, Label: "gizmo"}

	tests := []struct {
		name   string
		svc    *mockService
		method string
		path   string
		body   string
		want   int
	}{
		{"findAll ok", &mockService{items: []widgetDTO{*found}}, http.MethodGet, "/widgets", "", http.StatusOK},
		{"findAll error", &mockService{err: errService}, http.MethodGet, "/widgets", "", http.StatusInternalServerError},

		{"findById ok", &mockService{item: found}, http.MethodGet, "/widgets/1", "", http.StatusOK},
		{"findById missing", &mockService{}, http.MethodGet, "/widgets/1", "", http.StatusNotFound},
		{"findById error", &mockService{err: errService}, http.MethodGet, "/widgets/1", "", http.StatusInternalServerError},
		{"findById bad id", &mockService{}, http.MethodGet, "/widgets/abc", "", http.StatusBadRequest},

		{"create ok", &mockService{item: found}, http.MethodPost, "/widgets", `{"label":"gizmo"}`, http.StatusCreated},
		{"create error", &mockService{err: errService}, http.MethodPost, "/widgets", `{"label":"gizmo"}`, http.StatusBadRequest},

		{"update ok", &mockService{item: found}, http.MethodPut, "/widgets/1", `{"label":"gizmo"}`, http.StatusOK},
		{"update missing", &mockService{}, http.MethodPut, "/widgets/1", `{"label":"gizmo"}`, http.StatusNotFound},
		{"update error", &mockService{err: errService}, http.MethodPut, "/widgets/1", `{"label":"gizmo"}`, http.StatusBadRequest},
		{"update bad id", &mockService{}, http.MethodPut, "/widgets/0", `{"label":"gizmo"}`, http.StatusBadRequest},

		{"delete ok", &mockService{deleted: true}, http.MethodDelete, "/widgets/1", "", http.StatusOK},
		{"delete missing", &mockService{}, http.MethodDelete, "/widgets/1", "", http.StatusNotFound},
		{"delete error", &mockService{err: errService}, http.MethodDelete, "/widgets/1", "", http.StatusInternalServerError},

		{"findBy ok", &mockService{items: []widgetDTO{}}, http.MethodPost, "/widgets/find", `{"label":"gizmo"}`, http.StatusOK},
		{"findBy error", &mockService{err: errService}, http.MethodPost, "/widgets/find", `{}`, http.StatusInternalServerError},
		{"findBy bad body", &mockService{}, http.MethodPost, "/widgets/find", `not json`, http.StatusBadRequest},

		{"findOneBy ok", &mockService{item: found}, http.MethodPost, "/widgets/findOne", `{"label":"gizmo"}`, http.StatusOK},
		{"findOneBy missing", &mockService{}, http.MethodPost, "/widgets/findOne", `{"label":"x"}`, http.StatusNotFound},
		{"findOneBy error", &mockService{err: errService}, http.MethodPost, "/widgets/findOne", `{}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(newControllerRouter(tt.svc), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, "body: %s", w.Body.String())
		})
	}
}

func TestController_ErrorBodyHidesDriverError(t *testing.T) {
	w := doJSON(newControllerRouter(&mockService{err: errService}), http.MethodGet, "/widgets", "")

	resp := decodeError(t, w)
	assert.Equal(t, "Error fetching entities", resp.Message)
	assert.Equal(t, "internal error", resp.Error)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestController_ErrorBodyCarriesAppErrorMessage(t *testing.T) {
	svc := &mockService{err: domain.NewValidationError(`unknown field "nope"`)}
	w := doJSON(newControllerRouter(svc), http.MethodPost, "/widgets/find", `{"nope":1}`)

	resp := decodeError(t, w)
	assert.Equal(t, `unknown field "nope"`, resp.Error)
}

func TestController_FindAll_EmptyIsArray(t *testing.T) {
	w := doJSON(newControllerRouter(&mockService{}), http.MethodGet, "/widgets", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestController_FindAll_PassesQueryOptions(t *testing.T) {
	svc := &mockService{}
	doJSON(newControllerRouter(svc), http.MethodGet, "/widgets?limit=5&sort=label:desc&active=true", "")

	assert.Equal(t, 5, svc.gotOpts.Limit)
	assert.Equal(t, "label:desc", svc.gotOpts.Order)
	assert.Equal(t, map[string]any{"active": "true"}, svc.gotOpts.Where)
}

func TestController_Create_UsesValidatedBody(t *testing.T) {
	svc := &mockService{item: &widgetDTO{ID: 1}}
	w := doJSON(newControllerRouter(svc), http.MethodPost, "/widgets", `{"label":"gizmo","unitPrice":3}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, map[string]any{"label": "gizmo", "unitPrice": float64(3)}, svc.gotBody)
}

func TestController_Delete_Message(t *testing.T) {
	svc := &mockService{deleted: true}
	w := doJSON(newControllerRouter(svc), http.MethodDelete, "/widgets/12", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Entity deleted successfully"}`, w.Body.String())
	assert.Equal(t, uint(12), svc.gotID)
}

func TestController_FindOneBy_NotFoundMessage(t *testing.T) {
	w := doJSON(newControllerRouter(&mockService{}), http.MethodPost, "/widgets/findOne", `{"label":"x"}`)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", decodeError(t, w).Message)
}

func TestController_Create_WithoutValidateMiddleware(t *testing.T) {
	svc := &mockService{item: &widgetDTO{ID: 1}}
	r := gin.New()
	r.POST("/raw", NewController[widgetDTO](svc).Create)

	w := doJSON(r, http.MethodPost, "/raw", `{"anything":"goes"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, map[string]any{"anything": "goes"}, svc.gotBody)

	w = doJSON(r, http.MethodPost, "/raw", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
