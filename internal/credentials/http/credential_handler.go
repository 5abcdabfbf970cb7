// Package http provides the HTTP handlers of the credential API. A request may
// carry the X-Credential-Scope header, in which case the scoped manager
// operations are used.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/credentials/http/dto"
	"github.com/allisson/credentials/internal/credentials/usecase"
	"github.com/allisson/credentials/internal/httputil"
	customValidation "github.com/allisson/credentials/internal/validation"
)

// ScopeHeader selects the scope of a request.
const ScopeHeader = "X-Credential-Scope"

// CredentialHandler handles HTTP requests for credential operations.
type CredentialHandler struct {
	manager usecase.CredentialManager
	logger  *slog.Logger
}

// NewCredentialHandler creates a credential handler.
func NewCredentialHandler(manager usecase.CredentialManager, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{manager: manager, logger: logger}
}

// RegisterRoutes mounts the handlers on a /v1/credentials group.
func (h *CredentialHandler) RegisterRoutes(credentials gin.IRoutes) {
	credentials.POST("", h.CreateHandler)
	credentials.GET("", h.ListHandler)
	credentials.PUT("/:id", h.StoreHandler)
	credentials.GET("/:id", h.GetHandler)
	credentials.DELETE("/:id", h.DeleteHandler)
	credentials.GET("/:id/validate", h.ValidateHandler)
	credentials.POST("/batch/store", h.StoreBatchHandler)
	credentials.POST("/batch/retrieve", h.RetrieveBatchHandler)
	credentials.POST("/batch/delete", h.DeleteBatchHandler)
	credentials.POST("/batch/validate", h.ValidateBatchHandler)
}

// StoreHandler creates or replaces the credential named in the path.
// PUT /v1/credentials/:id - 201 Created with the id.
func (h *CredentialHandler) StoreHandler(c *gin.Context) {
	id, err := domain.NewCredentialID(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	h.store(c, id)
}

// CreateHandler stores a credential under a generated UUIDv7 id.
// POST /v1/credentials - 201 Created with the id.
func (h *CredentialHandler) CreateHandler(c *gin.Context) {
	generated, err := uuid.NewV7()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	h.store(c, domain.CredentialID(generated.String()))
}

func (h *CredentialHandler) store(c *gin.Context, id domain.CredentialID) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	var req dto.StoreCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	credential, err := req.ToCredential()
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	defer credential.Zero()

	if scope != nil {
		err = h.manager.StoreScoped(c.Request.Context(), id, credential, *scope)
	} else {
		err = h.manager.Store(c.Request.Context(), id, credential)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.StoreResponse{ID: id.String()})
}

// GetHandler returns the credential including its base64 value.
// GET /v1/credentials/:id - 404 when absent or owned by another scope.
func (h *CredentialHandler) GetHandler(c *gin.Context) {
	id, credential, ok := h.retrieve(c)
	if !ok {
		return
	}
	defer credential.Zero()

	c.JSON(http.StatusOK, dto.MapCredentialToResponse(id, credential))
}

// DeleteHandler removes a credential. With a scope header the credential must
// belong to that scope.
// DELETE /v1/credentials/:id - 204 No Content, also when already absent.
func (h *CredentialHandler) DeleteHandler(c *gin.Context) {
	id, err := domain.NewCredentialID(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	if scope != nil {
		_, err = h.manager.DeleteScoped(c.Request.Context(), id, *scope)
	} else {
		err = h.manager.Delete(c.Request.Context(), id)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListHandler lists ids in ascending order.
// GET /v1/credentials?prefix=app_&tag=prod&tag=db&limit=100
func (h *CredentialHandler) ListHandler(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	limit, err := httputil.ParseLimit(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := &domain.ListFilter{
		Prefix: c.Query("prefix"),
		Tags:   c.QueryArray("tag"),
		Limit:  limit,
	}

	var ids []domain.CredentialID
	if scope != nil {
		ids, err = h.manager.ListScoped(c.Request.Context(), filter, *scope)
	} else {
		ids, err = h.manager.List(c.Request.Context(), filter)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapIDsToListResponse(ids))
}

// ValidateHandler reports expiry and rotation status. Missing credentials are a
// not_found result rather than a 404.
// GET /v1/credentials/:id/validate
func (h *CredentialHandler) ValidateHandler(c *gin.Context) {
	id, err := domain.NewCredentialID(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	var result domain.ValidationResult
	if scope != nil {
		result, err = h.manager.ValidateScoped(c.Request.Context(), id, *scope)
	} else {
		result, err = h.manager.Validate(c.Request.Context(), id)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapValidationToResponse(result))
}

// StoreBatchHandler stores every item independently. Items without a scope take
// the scope header; items with their own scope must lie within it.
// POST /v1/credentials/batch/store - 200 OK with one result per item.
func (h *CredentialHandler) StoreBatchHandler(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	var req dto.BatchStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	items := make([]usecase.StoreItem, 0, len(req.Items))
	defer func() {
		for _, item := range items {
			item.Credential.Zero()
		}
	}()
	for i := range req.Items {
		item, err := toStoreItem(&req.Items[i])
		if err != nil {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("items[%d]: %w", i, err), h.logger)
			return
		}
		items = append(items, item)
		if scope == nil {
			continue
		}
		if item.Scope == nil {
			items[len(items)-1].Scope = scope
		} else if !item.Scope.MatchesPrefix(*scope) {
			httputil.HandleErrorGin(c, fmt.Errorf("items[%d]: %w", i, domain.ErrScopeViolation), h.logger)
			return
		}
	}

	results := h.manager.StoreBatch(c.Request.Context(), items)
	c.JSON(http.StatusOK, dto.MapBatchResults(results, httputil.ErrorCode, nil))
}

func toStoreItem(req *dto.BatchStoreItem) (usecase.StoreItem, error) {
	item := usecase.StoreItem{ID: domain.CredentialID(req.ID)}
	if req.Scope != "" {
		scope, err := domain.NewScopeID(req.Scope)
		if err != nil {
			return item, err
		}
		item.Scope = &scope
	}
	credential, err := req.ToCredential()
	if err != nil {
		return item, err
	}
	item.Credential = credential
	return item, nil
}

// RetrieveBatchHandler returns the credentials in request order. Absent ids, and
// with a scope header ids of other scopes, succeed without a credential.
// POST /v1/credentials/batch/retrieve
func (h *CredentialHandler) RetrieveBatchHandler(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	ids, ok := h.batchIDs(c)
	if !ok {
		return
	}

	var results domain.BatchResults[*domain.Credential]
	if scope != nil {
		results = h.manager.RetrieveBatchScoped(c.Request.Context(), ids, *scope)
	} else {
		results = h.manager.RetrieveBatch(c.Request.Context(), ids)
	}
	defer func() {
		for _, result := range results {
			result.Value.Zero()
		}
	}()

	c.JSON(http.StatusOK, dto.MapBatchResults(results, httputil.ErrorCode,
		func(item *dto.BatchItemResponse, id domain.CredentialID, credential *domain.Credential) {
			if credential != nil {
				response := dto.MapCredentialToResponse(id, credential)
				item.Credential = &response
			}
		}))
}

// DeleteBatchHandler deletes every id independently. With a scope header ids of
// other scopes are left in place.
// POST /v1/credentials/batch/delete
func (h *CredentialHandler) DeleteBatchHandler(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	ids, ok := h.batchIDs(c)
	if !ok {
		return
	}

	var results domain.BatchResults[struct{}]
	if scope != nil {
		results = h.manager.DeleteBatchScoped(c.Request.Context(), ids, *scope)
	} else {
		results = h.manager.DeleteBatch(c.Request.Context(), ids)
	}
	c.JSON(http.StatusOK, dto.MapBatchResults(results, httputil.ErrorCode, nil))
}

// ValidateBatchHandler validates every id independently. With a scope header ids
// of other scopes report not_found.
// POST /v1/credentials/batch/validate
func (h *CredentialHandler) ValidateBatchHandler(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	ids, ok := h.batchIDs(c)
	if !ok {
		return
	}

	var results domain.BatchResults[domain.ValidationResult]
	if scope != nil {
		results = h.manager.ValidateBatchScoped(c.Request.Context(), ids, *scope)
	} else {
		results = h.manager.ValidateBatch(c.Request.Context(), ids)
	}
	c.JSON(http.StatusOK, dto.MapBatchResults(results, httputil.ErrorCode,
		func(item *dto.BatchItemResponse, _ domain.CredentialID, result domain.ValidationResult) {
			response := dto.MapValidationToResponse(result)
			item.Validation = &response
		}))
}

func (h *CredentialHandler) retrieve(c *gin.Context) (domain.CredentialID, *domain.Credential, bool) {
	id, err := domain.NewCredentialID(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return "", nil, false
	}
	scope, ok := h.scope(c)
	if !ok {
		return "", nil, false
	}

	var credential *domain.Credential
	if scope != nil {
		credential, err = h.manager.RetrieveScoped(c.Request.Context(), id, *scope)
	} else {
		credential, err = h.manager.Retrieve(c.Request.Context(), id)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return "", nil, false
	}
	if credential == nil {
		httputil.HandleErrorGin(c, domain.ErrCredentialNotFound, h.logger)
		return "", nil, false
	}
	return id, credential, true
}

// scope parses the scope header. It writes a 422 and returns false when malformed.
func (h *CredentialHandler) scope(c *gin.Context) (*domain.ScopeID, bool) {
	raw := c.GetHeader(ScopeHeader)
	if raw == "" {
		return nil, true
	}
	scope, err := domain.NewScopeID(raw)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return nil, false
	}
	return &scope, true
}

func (h *CredentialHandler) batchIDs(c *gin.Context) ([]domain.CredentialID, bool) {
	var req dto.BatchIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}

	ids := make([]domain.CredentialID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		ids = append(ids, domain.CredentialID(raw))
	}
	return ids, true
}
