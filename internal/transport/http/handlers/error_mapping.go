package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase pairs a sentinel error with the HTTP status and message it maps to.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError writes the response for the first case matching err,
// or the fallback when none does. A nil err answers 200 with no body.
func RespondWithMappedError(c *gin.Context, err error, fallbackStatus int, fallbackMessage string, cases ...ErrorCase) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, mapping := range cases {
		if mapping.Err != nil && errors.Is(err, mapping.Err) {
			c.JSON(mapping.Status, NewErrorResponse(c, mapping.Message))
			return
		}
	}
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
