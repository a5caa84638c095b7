package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
)

// CatalogHandler serves the read-only tag and ingredient reference data
type CatalogHandler struct {
	tagService        service.ITagService
	ingredientService service.IIngredientService
}

func NewCatalogHandler(tags service.ITagService, ingredients service.IIngredientService) *CatalogHandler {
	return &CatalogHandler{tagService: tags, ingredientService: ingredients}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tags", h.ListTags)
	router.GET("/tags/:id", h.GetTag)
	router.GET("/ingredients", h.SearchIngredients)
	router.GET("/ingredients/:id", h.GetIngredient)
}

func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.tagService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *CatalogHandler) GetTag(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tag, err := h.tagService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// SearchIngredients filters by case-insensitive name prefix (?name=)
func (h *CatalogHandler) SearchIngredients(c *gin.Context) {
	ingredients, err := h.ingredientService.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ingredient, err := h.ingredientService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}
