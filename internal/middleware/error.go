package middleware

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler recovers from panics and answers with a JSON 500. Errors that
// handlers attached with c.Error without writing a response are reported the
// same way.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered", "error", err, "method", c.Request.Method, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			log.Error("request failed", "error", c.Errors.String(), "path", c.Request.URL.Path)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
		}
	}
}
