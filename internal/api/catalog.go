package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/internal/webserver"
)

type namePayload struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (h *Handler) registerCategoryRoutes(srv *webserver.Server) {
	srv.ApiGET("/categories", h.listCategories)
	srv.ApiGET("/categories/:id", h.getCategory)
	srv.ApiPOST("/categories", h.createCategory)
	srv.ApiPUT("/categories/:id", h.updateCategory)
	srv.ApiDELETE("/categories/:id", h.deleteCategory)
}

func (h *Handler) registerIngredientRoutes(srv *webserver.Server) {
	srv.ApiGET("/ingredients", h.listIngredients)
	srv.ApiGET("/ingredients/:id", h.getIngredient)
	srv.ApiPOST("/ingredients", h.createIngredient)
	srv.ApiPUT("/ingredients/:id", h.updateIngredient)
	srv.ApiDELETE("/ingredients/:id", h.deleteIngredient)
}

// bindName reads a {"name": ...} body. Failures come back as *echo.HTTPError
// and are rendered by the server's error handler.
func bindName(c echo.Context) (string, error) {
	var payload namePayload
	if err := c.Bind(&payload); err != nil {
		return "", err
	}
	if err := c.Validate(&payload); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, domain.MsgNameRequired).SetInternal(err)
	}
	return payload.Name, nil
}

func (h *Handler) listCategories(c echo.Context) error {
	items, err := h.categories.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, items)
}

func (h *Handler) getCategory(c echo.Context) error {
	item, err := h.categories.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, item)
}

func (h *Handler) createCategory(c echo.Context) error {
	name, err := bindName(c)
	if err != nil {
		return err
	}
	item, err := h.categories.Create(c.Request().Context(), name)
	if err != nil {
		return handleError(c, err)
	}
	return created(c, item)
}

func (h *Handler) updateCategory(c echo.Context) error {
	name, err := bindName(c)
	if err != nil {
		return err
	}
	item, err := h.categories.Update(c.Request().Context(), c.Param("id"), name)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, item)
}

func (h *Handler) deleteCategory(c echo.Context) error {
	if err := h.categories.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listIngredients(c echo.Context) error {
	items, err := h.ingredients.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, items)
}

func (h *Handler) getIngredient(c echo.Context) error {
	item, err := h.ingredients.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, item)
}

func (h *Handler) createIngredient(c echo.Context) error {
	name, err := bindName(c)
	if err != nil {
		return err
	}
	item, err := h.ingredients.Create(c.Request().Context(), name)
	if err != nil {
		return handleError(c, err)
	}
	return created(c, item)
}

func (h *Handler) updateIngredient(c echo.Context) error {
	name, err := bindName(c)
	if err != nil {
		return err
	}
	item, err := h.ingredients.Update(c.Request().Context(), c.Param("id"), name)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, item)
}

func (h *Handler) deleteIngredient(c echo.Context) error {
	if err := h.ingredients.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
