package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/profile-assistant/internal/auth"
	"github.com/suPer8Hu/profile-assistant/internal/common"
)

const (
	TabCookieName = "pa_tab"
	TabKeyKey     = "tab_key"
)

// Tab resolves the visitor's tab key from the signed cookie, issuing a fresh
// cookie when it is missing or does not verify. The cookie has no Max-Age so it
// ends with the browser session.
func Tab(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(TabCookieName); err == nil && raw != "" {
			if key, err := auth.ParseTabToken(raw, secret); err == nil {
				c.Set(TabKeyKey, key)
				c.Next()
				return
			}
		}

		key := auth.NewTabKey()
		token, err := auth.SignTabToken(key, secret)
		if err != nil {
			log.Printf("[Tab] sign failed err=%v", err)
			c.Abort()
			common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(TabCookieName, token, 0, "/", "", c.Request.TLS != nil, true)
		c.Set(TabKeyKey, key)
		c.Next()
	}
}

// TabKeyFromContext returns the tab key set by Tab.
func TabKeyFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(TabKeyKey)
	if !ok {
		return "", false
	}
	key, ok := v.(string)
	return key, ok && key != ""
}
