package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// HealthCheck returns the health status of the API
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrInvalidOperation),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var fieldErr *service.FieldError
	if errors.As(err, &fieldErr) {
		body["error"] = fieldErr.Message
		body["field"] = fieldErr.Field
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// parseID reads a positive integer path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// parseBool accepts 1/0/true/false; ok is false when the value is malformed
func parseBool(raw string) (value *bool, ok bool) {
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &b, true
}

// Paginator reads page/limit query parameters and renders page envelopes
type Paginator struct {
	DefaultLimit int
	MaxLimit     int
}

func (p Paginator) Request(c *gin.Context) (types.PageRequest, error) {
	req := types.PageRequest{Page: 1, Limit: p.DefaultLimit}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, fmt.Errorf("invalid page %q", raw)
		}
		req.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, fmt.Errorf("invalid limit %q", raw)
		}
		req.Limit = min(limit, p.MaxLimit)
	}
	return req, nil
}

// NewPage wraps one page of results with the total count and neighbour links
func NewPage[T any](c *gin.Context, req types.PageRequest, results []T, total int64) types.Page[T] {
	if results == nil {
		results = []T{}
	}
	page := types.Page[T]{Count: total, Results: results}
	if int64(req.Page*req.Limit) < total {
		link := pageURL(c, req.Page+1)
		page.Next = &link
	}
	if req.Page > 1 {
		link := pageURL(c, req.Page-1)
		page.Previous = &link
	}
	return page
}

func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return u.String()
}
