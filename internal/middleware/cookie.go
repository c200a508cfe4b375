package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthCookieName carries the room membership token.
const AuthCookieName = "x-auth-token"

func GetAuthToken(c *gin.Context) string {
	token, err := c.Cookie(AuthCookieName)
	if err != nil {
		return ""
	}
	return token
}

// SetAuthCookie issues the membership token as a session cookie.
func SetAuthCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AuthCookieName, token, 0, "/", "", secure, true)
}
