package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/notify/internal/session"
)

type sendRequest struct {
	To   string `json:"to" binding:"required"`
	Body string `json:"body" binding:"required"`
}

type bulkRequest struct {
	Messages []session.BulkMessage `json:"messages" binding:"required,min=1,dive"`
	DelayMS  *int                  `json:"delay_ms"`
}

// defaultBulkDelay is what production callers use between bulk sends to
// stay under transport rate limits.
const defaultBulkDelay = 2 * time.Second

func (s *Server) postMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.client.SendMessage(c.Request.Context(), req.To, req.Body)
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}

	switch {
	case errors.Is(err, session.ErrInvalidDestination):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNotReady),
		errors.Is(err, session.ErrTimeout),
		errors.Is(err, session.ErrTransport):
		// The immediate attempt failed; hand the message to the retry
		// queue and tell the caller it is pending.
		if qerr := s.client.Enqueue(req.To, req.Body); qerr != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": qerr.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":       "queued",
			"queue_length": s.client.QueueLength(),
			"error":        err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) postBulkMessages(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delay := defaultBulkDelay
	if req.DelayMS != nil {
		delay = time.Duration(*req.DelayMS) * time.Millisecond
	}

	outcomes := s.client.SendBulk(c.Request.Context(), req.Messages, delay)
	sent := 0
	for _, o := range outcomes {
		if o.Result != nil {
			sent++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": outcomes,
		"sent":    sent,
		"failed":  len(outcomes) - sent,
	})
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":        s.client.GetState(),
		"connected":    s.client.IsConnected(),
		"queue_length": s.client.QueueLength(),
	})
}

func (s *Server) getSessionQR(c *gin.Context) {
	s.mu.Lock()
	code := s.lastQR
	s.mu.Unlock()
	if code == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pairing challenge pending"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (s *Server) postConnect(c *gin.Context) {
	initiated, err := s.client.Initialize(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": s.client.GetState()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"initiated": initiated, "state": s.client.GetState()})
}

func (s *Server) postDisconnect(c *gin.Context) {
	s.client.Disconnect(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"state": s.client.GetState()})
}

func (s *Server) getQueue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"length": s.client.QueueLength()})
}
