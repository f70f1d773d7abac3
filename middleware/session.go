package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionCookie is the name of the cookie carrying the session id
const SessionCookie = "tb_session"

// NewSessionMiddleware makes sure every request carries a session id and
// sets it as sessionID. Unknown or malformed cookies get a fresh id.
func NewSessionMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, id, 0, "/", "", secure, true)
		c.Set("sessionID", id)
		c.Next()
	}
}
