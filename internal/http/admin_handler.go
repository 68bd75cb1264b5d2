package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/guttosm/shell-cache/internal/domain/dto"
	"github.com/guttosm/shell-cache/internal/i18n"
	"github.com/guttosm/shell-cache/internal/repository"
	"github.com/guttosm/shell-cache/internal/service"
)

// AdminHandler serves the /_cache admin API.
type AdminHandler struct {
	registration *service.Registration
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(registration *service.Registration) *AdminHandler {
	return &AdminHandler{registration: registration}
}

// Status handles GET /_cache/status.
//
// @Summary      Cache status
// @Description  Returns the page origin, the storage backend and the active and waiting generations
// @Tags         Cache
// @Produce      json
// @Param        X-API-Key header string false "Admin API key (required if keys are configured)"
// @Success      200 {object} dto.SuccessResponse{data=dto.StatusResponse} "Current generations"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      503 {object} dto.ErrorResponse "Storage unavailable"
// @Security     ApiKeyAuth
// @Router       /_cache/status [get]
func (h *AdminHandler) Status(c *gin.Context) {
	builder := NewResponseBuilder(c)

	status, err := h.registration.Status(c.Request.Context())
	if err != nil {
		builder.Error(http.StatusServiceUnavailable, i18n.ErrKeyStorageUnavailable, err)
		return
	}

	builder.SuccessOK(dto.StatusResponse{
		Origin:  h.registration.Origin().String(),
		Backend: h.registration.Storage().Backend(),
		Active:  generationResponse(status.Active),
		Waiting: generationResponse(status.Waiting),
	})
}

func generationResponse(s *service.GenerationStatus) *dto.GenerationResponse {
	if s == nil {
		return nil
	}
	return dto.NewGenerationResponse(s.Generation, s.State, s.Entries)
}

// Stores handles GET /_cache/stores.
//
// @Summary      List stores
// @Description  Returns every store name in the backing storage
// @Tags         Cache
// @Produce      json
// @Success      200 {object} dto.SuccessResponse{data=dto.StoresResponse} "Store names"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      503 {object} dto.ErrorResponse "Storage unavailable"
// @Security     ApiKeyAuth
// @Router       /_cache/stores [get]
func (h *AdminHandler) Stores(c *gin.Context) {
	builder := NewResponseBuilder(c)

	names, err := h.registration.Stores(c.Request.Context())
	if err != nil {
		builder.Error(http.StatusServiceUnavailable, i18n.ErrKeyStorageUnavailable, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	builder.SuccessOK(dto.StoresResponse{Stores: names})
}

// StoreEntries handles GET /_cache/stores/:name/entries.
//
// @Summary      List store entries
// @Description  Returns the request identities held in one store
// @Tags         Cache
// @Produce      json
// @Param        name path string true "Store name" example(app-v1)
// @Success      200 {object} dto.SuccessResponse{data=dto.EntriesResponse} "Stored identities"
// @Failure      400 {object} dto.ErrorResponse i18n.ErrKeyInvalidStoreName
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      404 {object} dto.ErrorResponse i18n.ErrKeyStoreNotFound
// @Failure      503 {object} dto.ErrorResponse "Storage unavailable"
// @Security     ApiKeyAuth
// @Router       /_cache/stores/{name}/entries [get]
func (h *AdminHandler) StoreEntries(c *gin.Context) {
	builder := NewResponseBuilder(c)
	name := c.Param("name")

	ids, err := h.registration.StoreEntries(c.Request.Context(), name)
	switch {
	case errors.Is(err, repository.ErrInvalidStoreName):
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidStoreName, nil)
		return
	case errors.Is(err, repository.ErrStoreNotFound):
		builder.Error(http.StatusNotFound, i18n.ErrKeyStoreNotFound, nil)
		return
	case err != nil:
		builder.Error(http.StatusServiceUnavailable, i18n.ErrKeyStorageUnavailable, err)
		return
	}

	builder.SuccessOK(dto.NewEntriesResponse(name, ids))
}

// Deploy handles POST /_cache/deploy. The new generation is installed
// and, when it may skip waiting, activated before the response is sent.
//
// @Summary      Deploy a generation
// @Description  Installs a new generation from its manifest; omitted fields use the configured defaults
// @Tags         Cache
// @Accept       json
// @Produce      json
// @Param        request body dto.DeployRequest true "Generation to deploy"
// @Success      201 {object} dto.SuccessResponse{data=dto.DeployResponse} "Installed generation"
// @Failure      400 {object} dto.ErrorResponse "Invalid request"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      502 {object} dto.ErrorResponse "Install failed"
// @Security     ApiKeyAuth
// @Router       /_cache/deploy [post]
func (h *AdminHandler) Deploy(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequest[dto.DeployRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, err.Error(), nil)
		return
	}

	m, err := h.registration.Deploy(c.Request.Context(), service.DeploySpec{
		Version:      req.Version,
		Manifest:     req.Manifest,
		ExcludeHosts: req.ExcludeHosts,
		SkipWaiting:  req.SkipWaiting,
		Claim:        req.Claim,
	})
	var warning string
	switch {
	case errors.Is(err, service.ErrInvalidGeneration):
		builder.Error(http.StatusBadRequest, err.Error(), nil)
		return
	case errors.Is(err, service.ErrInstallFailed):
		builder.ErrorWithCode(http.StatusBadGateway, dto.ErrCodeInstallFailed, i18n.ErrKeyInstallFailed, err)
		return
	case errors.Is(err, service.ErrCleanupFailed):
		warning = err.Error()
	case err != nil:
		builder.Error(http.StatusInternalServerError, i18n.ErrKeyInternalError, err)
		return
	}

	builder.Success(http.StatusCreated, h.deployResponse(c.Request.Context(), m, warning))
}

// Promote handles POST /_cache/promote.
//
// @Summary      Promote the waiting generation
// @Description  Activates the installed generation that is waiting and purges the others
// @Tags         Cache
// @Produce      json
// @Success      200 {object} dto.SuccessResponse{data=dto.DeployResponse} "Activated generation"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      409 {object} dto.ErrorResponse i18n.ErrKeyNoWaiting
// @Security     ApiKeyAuth
// @Router       /_cache/promote [post]
func (h *AdminHandler) Promote(c *gin.Context) {
	builder := NewResponseBuilder(c)

	m, err := h.registration.Promote(c.Request.Context())
	var warning string
	switch {
	case errors.Is(err, service.ErrNoWaitingGeneration):
		builder.Error(http.StatusConflict, i18n.ErrKeyNoWaiting, nil)
		return
	case errors.Is(err, service.ErrCleanupFailed):
		warning = err.Error()
	case err != nil:
		builder.Error(http.StatusInternalServerError, i18n.ErrKeyInternalError, err)
		return
	}

	builder.SuccessOK(h.deployResponse(c.Request.Context(), m, warning))
}

func (h *AdminHandler) deployResponse(ctx context.Context, m *service.Manager, warning string) dto.DeployResponse {
	entries, err := m.Entries(ctx)
	if err != nil {
		log.Warn().Err(err).Str("store", m.Generation().StoreName).Msg("Failed to count entries")
	}
	return dto.DeployResponse{
		Generation: dto.NewGenerationResponse(m.Generation(), m.State(), len(entries)),
		Activated:  h.registration.Active() == m,
		Warning:    warning,
	}
}

// DeleteEntry handles DELETE /_cache/entries?url=.
//
// @Summary      Delete an entry
// @Description  Removes the stored GET response for one URL from the active store
// @Tags         Cache
// @Produce      json
// @Param        url query string true "URL or origin-relative path" example(/app.js)
// @Success      200 {object} dto.SuccessResponse{data=dto.DeleteEntryResponse} "Deletion result"
// @Failure      400 {object} dto.ErrorResponse "Missing or invalid url"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      409 {object} dto.ErrorResponse i18n.ErrKeyNoActive
// @Failure      503 {object} dto.ErrorResponse "Storage unavailable"
// @Security     ApiKeyAuth
// @Router       /_cache/entries [delete]
func (h *AdminHandler) DeleteEntry(c *gin.Context) {
	builder := NewResponseBuilder(c)

	raw := c.Query("url")
	if raw == "" {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyURLRequired, nil)
		return
	}
	if _, err := url.Parse(raw); err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyURLInvalid, nil)
		return
	}

	deleted, err := h.registration.DeleteEntry(c.Request.Context(), raw)
	switch {
	case errors.Is(err, service.ErrNoActiveGeneration):
		builder.Error(http.StatusConflict, i18n.ErrKeyNoActive, nil)
		return
	case err != nil:
		builder.Error(http.StatusServiceUnavailable, i18n.ErrKeyStorageUnavailable, err)
		return
	}

	builder.SuccessOK(dto.DeleteEntryResponse{URL: raw, Deleted: deleted})
}
