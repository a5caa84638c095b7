package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserHandler struct {
	userService         service.IUserService
	subscriptionService service.ISubscriptionService
	auth                middleware.TokenValidator
	paginator           Paginator
}

func NewUserHandler(users service.IUserService, subscriptions service.ISubscriptionService, auth middleware.TokenValidator, paginator Paginator) *UserHandler {
	return &UserHandler{
		userService:         users,
		subscriptionService: subscriptions,
		auth:                auth,
		paginator:           paginator,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", middleware.OptionalAuth(h.auth), h.ListUsers)
		users.GET("/:id", middleware.OptionalAuth(h.auth), h.GetUser)

		protected := users.Group("")
		protected.Use(middleware.AuthMiddleware(h.auth))
		{
			protected.GET("/me", h.Me)
			protected.POST("/set_password", h.SetPassword)
			protected.PUT("/me/avatar", h.SetAvatar)
			protected.DELETE("/me/avatar", h.DeleteAvatar)
			protected.GET("/subscriptions", h.Subscriptions)
			protected.POST("/:id/subscribe", h.Subscribe)
			protected.DELETE("/:id/subscribe", h.Unsubscribe)
		}
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := h.paginator.Request(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	users, total, err := h.userService.List(c.Request.Context(), middleware.CurrentUserID(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPage(c, page, users, total))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	user, err := h.userService.Get(c.Request.Context(), userID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "current_password and new_password are required")
		return
	}

	if err := h.userService.SetPassword(c.Request.Context(), middleware.CurrentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req types.AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "avatar is required")
		return
	}

	avatarURL, err := h.userService.SetAvatar(c.Request.Context(), middleware.CurrentUserID(c), req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.AvatarResponse{Avatar: avatarURL})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	if err := h.userService.DeleteAvatar(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, err := h.paginator.Request(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	limit, ok := recipesLimit(c)
	if !ok {
		return
	}

	subs, total, err := h.subscriptionService.List(c.Request.Context(), middleware.CurrentUserID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPage(c, page, subs, total))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, ok := recipesLimit(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Subscribe(c.Request.Context(), middleware.CurrentUserID(c), authorID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.subscriptionService.Unsubscribe(c.Request.Context(), middleware.CurrentUserID(c), authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipesLimit reads the optional recipes_limit query parameter; 0 means no limit
func recipesLimit(c *gin.Context) (int, bool) {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "recipes_limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}
