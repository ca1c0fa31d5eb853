package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/profile-assistant/internal/chat"
	"github.com/suPer8Hu/profile-assistant/internal/common"
	"github.com/suPer8Hu/profile-assistant/internal/httpapi/middleware"
	"github.com/suPer8Hu/profile-assistant/internal/profile"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func (h *Handler) sessionID(c *gin.Context) (string, bool) {
	tab, ok := middleware.TabKeyFromContext(c)
	if !ok {
		return "", false
	}
	return h.Sessions.GetOrCreateSessionID(c.Request.Context(), tab), true
}

// controller resolves the visitor's session and a loaded controller for it.
// Ids that could not be remembered get a controller the hub does not keep;
// release closes it. On failure the response has already been written.
func (h *Handler) controller(c *gin.Context) (*chat.Controller, func(), bool) {
	tab, ok := middleware.TabKeyFromContext(c)
	if !ok {
		common.Fail(c, http.StatusBadRequest, 40001, "missing tab")
		return nil, nil, false
	}
	sid, remembered := h.Sessions.Resolve(c.Request.Context(), tab)
	if !remembered {
		ctrl := h.Hub.Detached(c.Request.Context(), sid)
		return ctrl, ctrl.Close, true
	}
	ctrl, err := h.Hub.Controller(c.Request.Context(), sid)
	if err != nil {
		log.Printf("[controller] session=%s err=%v", sid, err)
		common.Fail(c, http.StatusServiceUnavailable, 50301, "session unavailable")
		return nil, nil, false
	}
	return ctrl, func() {}, true
}

func (h *Handler) GetSession(c *gin.Context) {
	sid, ok := h.sessionID(c)
	if !ok {
		common.Fail(c, http.StatusBadRequest, 40001, "missing tab")
		return
	}
	common.OK(c, gin.H{"session_id": sid})
}

func (h *Handler) GetProfile(c *gin.Context) {
	rec, err := h.Profiles.Get(c.Request.Context(), h.ProfileKey)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "profile not found")
			return
		}
		log.Printf("[GetProfile] key=%s err=%v", h.ProfileKey, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, rec)
}
