package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/profile-assistant/internal/common"
	"github.com/suPer8Hu/profile-assistant/internal/config"
	"github.com/suPer8Hu/profile-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/profile-assistant/internal/httpapi/middleware"
)

func NewRouter(cfg config.Config, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/ping", h.Ping)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api")
	api.GET("/profile", h.GetProfile)

	// tab cookie required
	tab := api.Group("/")
	tab.Use(middleware.Tab(cfg.JWTSecret))
	tab.GET("/session", h.GetSession)
	tab.GET("/messages", h.ListMessages)
	tab.POST("/messages", h.SendMessage)
	tab.DELETE("/messages", h.ClearMessages)
	return r
}
