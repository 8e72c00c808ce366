package middleware

import (
	"errors"

	apiError "mou-dashboard/internal/errors"
	"mou-dashboard/internal/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		// detect any errors
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			var apiErr *apiError.APIError

			// if it's our custom APIError
			if !errors.As(err, &apiErr) {
				// If it's a raw error we didn't wrap, treat as Internal
				apiErr = apiError.Internal(err)
			}

			if apiErr.Status >= 500 {
				log.Error("request failed", "status", apiErr.Status, "path", c.FullPath(), "err", apiErr.Internal)
			} else {
				log.Info(apiErr.Message, "status", apiErr.Status, "path", c.FullPath(), "err", apiErr.Internal)
			}

			// Respond with JSON
			c.AbortWithStatusJSON(apiErr.Status, apiErr)
		}
	}
}
