// Package api exposes the recipe engine and the catalog services over HTTP.
package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/cookbook/internal/catalog"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/internal/recipes"
	"github.com/talkincode/cookbook/internal/webserver"
	"go.uber.org/zap"
)

type Handler struct {
	recipes     *recipes.Service
	categories  *catalog.CategoryService
	ingredients *catalog.IngredientService
}

func NewHandler(recipeSvc *recipes.Service, categorySvc *catalog.CategoryService, ingredientSvc *catalog.IngredientService) *Handler {
	return &Handler{
		recipes:     recipeSvc,
		categories:  categorySvc,
		ingredients: ingredientSvc,
	}
}

// Register mounts every route on srv.
func (h *Handler) Register(srv *webserver.Server) {
	h.registerRecipeRoutes(srv)
	h.registerCategoryRoutes(srv)
	h.registerIngredientRoutes(srv)
	h.registerStatsRoutes(srv)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, webserver.ErrorResponse{Code: code, Message: message, Details: details})
}

// handleError maps classified business errors to HTTP responses.
func handleError(c echo.Context, err error) error {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case domain.KindNotFound:
		return fail(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case domain.KindConflict:
		return fail(c, http.StatusConflict, "CONFLICT", err.Error(), nil)
	}
	zap.L().Error("request failed",
		zap.String("namespace", "api"),
		zap.String("uri", c.Request().RequestURI),
		zap.Error(err))
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func handleValidationError(c echo.Context, err error, message string) error {
	var details []fieldError
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", message, details)
}
