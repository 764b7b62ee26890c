package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/internal/recipes"
	"github.com/talkincode/cookbook/internal/webserver"
)

// ingredientPayload accepts loosely typed values; they are coerced the same
// way for create and update.
type ingredientPayload struct {
	Name     interface{} `json:"name"`
	Quantity interface{} `json:"quantity"`
	Unit     interface{} `json:"unit"`
}

type recipePayload struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Ingredients []ingredientPayload `json:"ingredients"`
	Steps       []interface{}       `json:"steps"`
	Servings    interface{}         `json:"servings"`
	CategoryID  string              `json:"categoryId"`
}

type recipeUpdatePayload struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Ingredients *[]ingredientPayload `json:"ingredients"`
	Steps       *[]interface{}       `json:"steps"`
	Servings    interface{}          `json:"servings"`
	CategoryID  *string              `json:"categoryId"`
}

type shoppingListPayload struct {
	RecipeIDs []string `json:"recipeIds" validate:"required"`
}

func (h *Handler) registerRecipeRoutes(srv *webserver.Server) {
	srv.ApiGET("/recipes", h.listRecipes)
	srv.ApiGET("/recipes/stats", h.recipeStats)
	srv.ApiGET("/recipes/:id", h.getRecipe)
	srv.ApiGET("/recipes/:id/scale", h.scaleRecipe)
	srv.ApiPOST("/recipes", h.createRecipe)
	srv.ApiPOST("/recipes/shopping-list", h.shoppingList)
	srv.ApiPUT("/recipes/:id", h.updateRecipe)
	srv.ApiPATCH("/recipes/:id/publish", h.publishRecipe)
	srv.ApiPATCH("/recipes/:id/archive", h.archiveRecipe)
	srv.ApiDELETE("/recipes/:id", h.deleteRecipe)
}

func (h *Handler) listRecipes(c echo.Context) error {
	filter := recipes.ListFilter{
		CategoryID:   strings.TrimSpace(c.QueryParam("categoryId")),
		CategoryName: c.QueryParam("categoryName"),
		Search:       c.QueryParam("search"),
		Status:       strings.TrimSpace(c.QueryParam("status")),
	}
	if filter.Status == "" && c.QueryParam("all") == "true" {
		filter.Status = recipes.StatusAll
	}
	if v := strings.TrimSpace(c.QueryParam("createdAfter")); v != "" {
		t, err := dateparse.ParseAny(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid createdAfter", err.Error())
		}
		filter.CreatedAfter = &t
	}

	items, err := h.recipes.List(c.Request().Context(), filter)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, items)
}

func (h *Handler) getRecipe(c echo.Context) error {
	recipe, err := h.recipes.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, recipe)
}

func (h *Handler) createRecipe(c echo.Context) error {
	var payload recipePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to parse recipe", err.Error())
	}
	servings, err := parseServings(payload.Servings)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", msgServingsWhole, nil)
	}
	recipe, err := h.recipes.Create(c.Request().Context(), recipes.CreateInput{
		Title:       payload.Title,
		Description: payload.Description,
		Ingredients: toIngredientInputs(payload.Ingredients),
		Steps:       toSteps(payload.Steps),
		Servings:    servings,
		CategoryID:  payload.CategoryID,
	})
	if err != nil {
		return handleError(c, err)
	}
	return created(c, recipe)
}

func (h *Handler) updateRecipe(c echo.Context) error {
	var payload recipeUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to parse recipe", err.Error())
	}
	in := recipes.UpdateInput{
		Title:       payload.Title,
		Description: payload.Description,
		CategoryID:  payload.CategoryID,
	}
	if payload.Ingredients != nil {
		items := toIngredientInputs(*payload.Ingredients)
		in.Ingredients = &items
	}
	if payload.Steps != nil {
		steps := toSteps(*payload.Steps)
		in.Steps = &steps
	}
	if payload.Servings != nil {
		servings, err := parseServings(payload.Servings)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", msgServingsWhole, nil)
		}
		in.Servings = &servings
	}

	recipe, err := h.recipes.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, recipe)
}

func (h *Handler) publishRecipe(c echo.Context) error {
	recipe, err := h.recipes.Publish(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, recipe)
}

func (h *Handler) archiveRecipe(c echo.Context) error {
	recipe, err := h.recipes.Archive(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, recipe)
}

func (h *Handler) deleteRecipe(c echo.Context) error {
	if err := h.recipes.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) scaleRecipe(c echo.Context) error {
	servings, err := parseServings(c.QueryParam("servings"))
	if err != nil || servings <= 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST",
			"query parameter 'servings' is required and must be greater than 0", nil)
	}
	recipe, err := h.recipes.Scale(c.Request().Context(), c.Param("id"), servings)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, recipe)
}

func (h *Handler) shoppingList(c echo.Context) error {
	var payload shoppingListPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err, "request body must contain 'recipeIds' array")
	}

	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format != "" && format != "json" && format != "csv" && format != "xlsx" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unsupported format", format)
	}

	items, err := h.recipes.GenerateShoppingList(c.Request().Context(), payload.RecipeIDs)
	if err != nil {
		return handleError(c, err)
	}

	switch format {
	case "csv":
		data, err := gocsv.MarshalBytes(&items)
		if err != nil {
			return handleError(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="shopping-list.csv"`)
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
	case "xlsx":
		buf, err := shoppingListWorkbook(items)
		if err != nil {
			return handleError(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="shopping-list.xlsx"`)
		return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
	return ok(c, items)
}

func (h *Handler) recipeStats(c echo.Context) error {
	st, err := h.recipes.Stats(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, st)
}

const shoppingSheet = "Sheet1"

func shoppingListWorkbook(items []domain.ShoppingListItem) (*bytes.Buffer, error) {
	xlsx := excelize.NewFile()
	for i, title := range []string{"Ingredient ID", "Name", "Unit", "Quantity"} {
		xlsx.SetCellValue(shoppingSheet, fmt.Sprintf("%c1", 'A'+i), title)
	}
	for i, item := range items {
		row := i + 2
		xlsx.SetCellValue(shoppingSheet, fmt.Sprintf("A%d", row), item.IngredientID)
		xlsx.SetCellValue(shoppingSheet, fmt.Sprintf("B%d", row), item.Name)
		xlsx.SetCellValue(shoppingSheet, fmt.Sprintf("C%d", row), item.Unit)
		xlsx.SetCellValue(shoppingSheet, fmt.Sprintf("D%d", row), item.Quantity)
	}
	return xlsx.WriteToBuffer()
}

func toIngredientInputs(items []ingredientPayload) []recipes.IngredientInput {
	result := make([]recipes.IngredientInput, 0, len(items))
	for _, item := range items {
		// an unparseable quantity becomes 0 and fails validation
		quantity, _ := cast.ToFloat64E(item.Quantity)
		result = append(result, recipes.IngredientInput{
			Name:     cast.ToString(item.Name),
			Quantity: quantity,
			Unit:     cast.ToString(item.Unit),
		})
	}
	return result
}

func toSteps(steps []interface{}) []string {
	result := make([]string, 0, len(steps))
	for _, s := range steps {
		result = append(result, cast.ToString(s))
	}
	return result
}

const msgServingsWhole = "servings must be a whole number"

// parseServings reads a base-10 whole number from a JSON number or string.
// An absent or blank value is 0 and left to the engine to reject.
func parseServings(v interface{}) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case bool:
		return 0, fmt.Errorf("servings: unexpected boolean")
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return 0, nil
		}
		v = val
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("servings: %v is not a whole number", v)
	}
	return int(f), nil
}
