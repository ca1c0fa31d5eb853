package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/profile-assistant/internal/chat"
	"github.com/suPer8Hu/profile-assistant/internal/common"
)

func (h *Handler) ListMessages(c *gin.Context) {
	ctrl, release, ok := h.controller(c)
	if !ok {
		return
	}
	defer release()
	common.OK(c, ctrl.Snapshot())
}

type sendMessageReq struct {
	Message string `json:"message"`
}

// sseWriter starts the event stream lazily so a rejected send can still answer
// with a plain JSON envelope.
type sseWriter struct {
	c       *gin.Context
	flusher http.Flusher
	started bool
}

func (w *sseWriter) start() bool {
	if w.started {
		return true
	}
	flusher, ok := w.c.Writer.(http.Flusher)
	if !ok {
		return false
	}
	w.c.Header("Content-Type", "text/event-stream")
	w.c.Header("Cache-Control", "no-cache")
	w.c.Header("Connection", "keep-alive")
	w.c.Header("X-Accel-Buffering", "no") // helpful if behind nginx
	w.c.Status(http.StatusOK)
	w.flusher = flusher
	w.started = true
	return true
}

func (w *sseWriter) writeJSON(event string, payload any) {
	if !w.start() {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		// last-resort: send a simple error that won't break SSE framing
		fmt.Fprintf(w.c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
		w.flusher.Flush()
		return
	}
	if event != "" {
		fmt.Fprintf(w.c.Writer, "event: %s\n", event)
	}
	fmt.Fprintf(w.c.Writer, "data: %s\n\n", string(b))
	w.flusher.Flush()
}

// SendMessage answers with an SSE stream: the stored user message, the reveal
// frames of the reply, then done.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		common.Fail(c, http.StatusConflict, 40901, "message not accepted")
		return
	}

	ctrl, release, ok := h.controller(c)
	if !ok {
		return
	}
	defer release()

	w := &sseWriter{c: c}
	onFrame := func(f chat.Frame) {
		if f.Sender == chat.SenderUser {
			w.writeJSON("message", gin.H{
				"type":    "message",
				"message": f,
			})
			return
		}
		w.writeJSON("reveal", gin.H{
			"type": "reveal",
			"id":   f.MessageID,
			"text": f.Text,
		})
	}

	msg, err := ctrl.Send(c.Request.Context(), req.Message, onFrame)
	if errors.Is(err, chat.ErrClosed) {
		// evicted between hand-out and send; the hub builds a fresh one
		ctrl, release, ok = h.controller(c)
		if !ok {
			return
		}
		defer release()
		msg, err = ctrl.Send(c.Request.Context(), req.Message, onFrame)
	}
	switch {
	case err != nil && !w.started:
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to send message")
	case err != nil:
		log.Printf("[SendMessage] session=%s err=%v", ctrl.SessionID(), err)
		w.writeJSON("error", gin.H{
			"type":    "error",
			"message": "failed to store reply",
		})
	case msg == nil:
		common.Fail(c, http.StatusConflict, 40901, "message not accepted")
	default:
		w.writeJSON("done", gin.H{
			"type":       "done",
			"message_id": msg.ID,
		})
	}
}

func (h *Handler) ClearMessages(c *gin.Context) {
	ctrl, release, ok := h.controller(c)
	if !ok {
		return
	}
	defer release()
	if err := ctrl.Clear(c.Request.Context()); err != nil {
		// memory is already empty; the store may still hold rows
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to clear history")
		return
	}
	common.OK(c, ctrl.Snapshot())
}
