package controllers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aclamission/internal/ledger"
)

type Subscriber interface {
	Subscribe() (<-chan ledger.Event, func())
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type EventsController struct {
	Notifier  Subscriber
	Heartbeat time.Duration
}

// Stream sends change events as server-sent events until the client goes
// away. Views re-fetch when they see one.
func (h EventsController) Stream(c *gin.Context) {
	events, unsubscribe := h.Notifier.Subscribe()
	defer unsubscribe()

	hb := h.Heartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	ticker := time.NewTicker(hb)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

type HealthController struct {
	DB Pinger
}

func (h HealthController) Check(c *gin.Context) {
	if err := h.DB.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
