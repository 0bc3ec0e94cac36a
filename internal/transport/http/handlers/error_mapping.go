package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase maps a known usecase error onto an HTTP status and message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError walks the cases in order and writes the first match.
// Unknown errors fall through to a 500 with a generic message.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase) {
	for _, ec := range cases {
		if errors.Is(err, ec.Err) {
			c.JSON(ec.Status, NewErrorResponse(c, ec.Message))
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
}
