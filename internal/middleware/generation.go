package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/response"
)

const generationHeader = "X-Card-Generation"

// GenerationGuard admits one card generation request at a time. Each call
// builds an independent guard; routes share the limit only when they are
// registered with the same returned handler. Requests arriving while another
// is in flight are rejected with 409 instead of queueing behind it.
func GenerationGuard() gin.HandlerFunc {
	var inFlight sync.Mutex
	return func(c *gin.Context) {
		if !inFlight.TryLock() {
			c.Header(generationHeader, "busy")
			response.Error(c, appErrors.Clone(appErrors.ErrConflict, "card generation already in progress"))
			c.Abort()
			return
		}
		defer inFlight.Unlock()
		c.Next()
	}
}
