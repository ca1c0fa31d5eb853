package handlers

import (
	"net/http"

	"github.com/suPer8Hu/profile-assistant/internal/chat"
	"github.com/suPer8Hu/profile-assistant/internal/session"
)

type Handler struct {
	Sessions   *session.Manager
	Hub        *chat.Hub
	Profiles   chat.ProfileStore
	ProfileKey string
	Metrics    http.Handler
}

func NewHandler(sessions *session.Manager, hub *chat.Hub, profiles chat.ProfileStore, profileKey string, metrics http.Handler) *Handler {
	return &Handler{
		Sessions:   sessions,
		Hub:        hub,
		Profiles:   profiles,
		ProfileKey: profileKey,
		Metrics:    metrics,
	}
}
