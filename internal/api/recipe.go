package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type RecipeHandler struct {
	recipeService     service.IRecipeService
	membershipService service.IMembershipService
	shoppingList      service.IShoppingListService
	auth              middleware.TokenValidator
	createLimiter     middleware.Limiter
	paginator         Paginator
}

func NewRecipeHandler(
	recipes service.IRecipeService,
	memberships service.IMembershipService,
	shoppingList service.IShoppingListService,
	auth middleware.TokenValidator,
	createLimiter middleware.Limiter,
	paginator Paginator,
) *RecipeHandler {
	return &RecipeHandler{
		recipeService:     recipes,
		membershipService: memberships,
		shoppingList:      shoppingList,
		auth:              auth,
		createLimiter:     createLimiter,
		paginator:         paginator,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", middleware.OptionalAuth(h.auth), h.ListRecipes)
		recipes.GET("/:id", middleware.OptionalAuth(h.auth), h.GetRecipe)
		recipes.GET("/:id/get-link", h.GetLink)

		protected := recipes.Group("")
		protected.Use(middleware.AuthMiddleware(h.auth))
		{
			create := []gin.HandlerFunc{h.CreateRecipe}
			if h.createLimiter != nil {
				create = append([]gin.HandlerFunc{middleware.RateLimitMiddleware(h.createLimiter)}, create...)
			}
			protected.POST("", create...)
			protected.PATCH("/:id", h.UpdateRecipe)
			protected.PUT("/:id", h.UpdateRecipe)
			protected.DELETE("/:id", h.DeleteRecipe)

			protected.GET("/download_shopping_cart", h.DownloadShoppingCart)
			protected.POST("/:id/favorite", h.addTo(service.RelationFavorite))
			protected.DELETE("/:id/favorite", h.removeFrom(service.RelationFavorite))
			protected.POST("/:id/shopping_cart", h.addTo(service.RelationShoppingCart))
			protected.DELETE("/:id/shopping_cart", h.removeFrom(service.RelationShoppingCart))
		}
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, err := h.paginator.Request(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var filter types.RecipeFilter
	for _, raw := range c.QueryArray("tags") {
		for _, slug := range strings.Split(raw, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				filter.Tags = append(filter.Tags, slug)
			}
		}
	}
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			badRequest(c, "author must be a user id")
			return
		}
		author := uint(id)
		filter.AuthorID = &author
	}
	var ok bool
	if filter.IsFavorited, ok = parseBool(c.Query("is_favorited")); !ok {
		badRequest(c, "is_favorited must be 0 or 1")
		return
	}
	if filter.IsInShoppingCart, ok = parseBool(c.Query("is_in_shopping_cart")); !ok {
		badRequest(c, "is_in_shopping_cart must be 0 or 1")
		return
	}

	recipes, total, err := h.recipeService.List(c.Request.Context(), middleware.CurrentUserID(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPage(c, page, recipes, total))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipeService.Get(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var in types.RecipeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	recipe, err := h.recipeService.Create(c.Request.Context(), middleware.CurrentUserID(c), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in types.RecipeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	recipe, err := h.recipeService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.recipeService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	link, err := h.recipeService.ShortLink(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"short-link": link})
}

func (h *RecipeHandler) addTo(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}

		recipe, err := h.membershipService.Add(c.Request.Context(), kind, middleware.CurrentUserID(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, recipe)
	}
}

func (h *RecipeHandler) removeFrom(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}

		if err := h.membershipService.Remove(c.Request.Context(), kind, middleware.CurrentUserID(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	text, err := h.shoppingList.Build(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// ShortLinkRedirect sends /s/:code to the recipe page
func (h *RecipeHandler) ShortLinkRedirect(c *gin.Context) {
	id, err := h.recipeService.ResolveShortLink(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.recipeService.RecipeURL(id))
}
