package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"accountmeta/internal/adapters/logger"
	"accountmeta/internal/application/metadata"
	"accountmeta/internal/domain"
	"accountmeta/internal/domain/scope"
	httpports "accountmeta/internal/ports/http"
)

// HandlerAdapter adapts domain services to HTTP handlers
type HandlerAdapter struct {
	metadataService domain.MetadataService
	logger          *logger.Logger
}

// NewHandlerAdapter creates a new handler adapter
func NewHandlerAdapter(metadataService domain.MetadataService, logger *logger.Logger) *HandlerAdapter {
	return &HandlerAdapter{
		metadataService: metadataService,
		logger:          logger,
	}
}

// GetScopes lists the served network/layer pairs
func (h *HandlerAdapter) GetScopes(c echo.Context) error {
	return c.JSON(http.StatusOK, httpports.ToHTTPScopes(h.metadataService.Scopes()))
}

// GetAccountMetadata resolves the metadata of one address.
// The call waits for the sources to settle unless wait=false is given.
func (h *HandlerAdapter) GetAccountMetadata(c echo.Context) error {
	s, wait, err := h.parseRequest(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		return errorJSON(c, http.StatusBadRequest, "address is required")
	}

	result, err := h.metadataService.AccountMetadata(c.Request().Context(), s, address, wait)
	if err != nil {
		return h.serviceError(c, s, err)
	}

	return c.JSON(http.StatusOK, httpports.ToHTTPAddressMetadata(s, address, result))
}

// SearchAccounts searches named accounts by a name fragment.
// An empty name is not an error; it yields no results.
func (h *HandlerAdapter) SearchAccounts(c echo.Context) error {
	s, wait, err := h.parseRequest(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	name := c.QueryParam("name")
	result, err := h.metadataService.SearchByName(c.Request().Context(), s, name, wait)
	if err != nil {
		return h.serviceError(c, s, err)
	}

	return c.JSON(http.StatusOK, httpports.ToHTTPNameSearch(s, name, result))
}

func (h *HandlerAdapter) HealthCheck(c echo.Context) error {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "account-metadata",
		"version":   "1.0.0",
	}
	return c.JSON(http.StatusOK, status)
}

// parseRequest reads the scope path parameters and the wait query parameter
func (h *HandlerAdapter) parseRequest(c echo.Context) (scope.Scope, bool, error) {
	s, err := scope.ParseScope(c.Param("network"), c.Param("layer"))
	if err != nil {
		h.logger.Debug("Invalid scope",
			zap.String("network", c.Param("network")),
			zap.String("layer", c.Param("layer")),
			zap.Error(err),
		)
		return scope.Scope{}, false, err
	}

	wait := true
	if v := c.QueryParam("wait"); v != "" {
		if wait, err = strconv.ParseBool(v); err != nil {
			return scope.Scope{}, false, fmt.Errorf("invalid wait parameter %q", v)
		}
	}
	return s, wait, nil
}

func (h *HandlerAdapter) serviceError(c echo.Context, s scope.Scope, err error) error {
	if errors.Is(err, metadata.ErrScopeDisabled) {
		return errorJSON(c, http.StatusNotFound, err.Error())
	}
	h.logger.Error("Metadata request failed", zap.String("scope", s.String()), zap.Error(err))
	return errorJSON(c, http.StatusInternalServerError, err.Error())
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, httpports.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
