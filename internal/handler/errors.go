package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// respondWithMappedError writes the first matching case, or logs err and falls back
// to fallbackStatus with a generic message
func respondWithMappedError(c *gin.Context, log *zap.Logger, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	for _, cs := range cases {
		if errors.Is(err, cs.Err) {
			msg := cs.Message
			if msg == "" {
				msg = cs.Err.Error()
			}
			c.JSON(cs.Status, gin.H{"error": msg})
			return
		}
	}

	_ = c.Error(err)
	log.Error(fallbackMessage, zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(fallbackStatus, gin.H{"error": fallbackMessage})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
}
