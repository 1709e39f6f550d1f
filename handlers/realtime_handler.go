package handlers

import (
	"io"
	"time"

	"site-cms/notify"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 25 * time.Second

// RealtimeHandler streams hub channels to browsers as server-sent events.
type RealtimeHandler struct {
	hub *notify.Hub
}

func NewRealtimeHandler(hub *notify.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

func (h *RealtimeHandler) Admin(c *gin.Context) {
	h.stream(c, notify.ChannelAdmin)
}

func (h *RealtimeHandler) Public(c *gin.Context) {
	h.stream(c, notify.ChannelPublic)
}

func (h *RealtimeHandler) stream(c *gin.Context, channel string) {
	sub := h.hub.Subscribe(channel)
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", gin.H{"channel": channel})
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case evt, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(evt.Name, evt)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
