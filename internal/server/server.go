// ABOUTME: HTTP transport for the chat pipeline built on gin
// ABOUTME: Streams completions as chunked text or server-sent events
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ummati/ummati/internal/core"
	"github.com/ummati/ummati/internal/models"
)

const (
	// StatusTrailer reports how a plain-text stream ended
	StatusTrailer = "X-Stream-Status"
	// RequestIDHeader carries the per-request ID
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 1 << 20
)

// Runner starts a streamed answer for a conversation history
type Runner interface {
	Run(ctx context.Context, history []models.Message) (*core.Stream, error)
}

// Server is the HTTP server for the chat API
type Server struct {
	runner Runner
	engine *gin.Engine
	addr   string
}

// NewServer creates a server answering on addr
func NewServer(runner Runner, addr string) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware(), loggingMiddleware(), corsMiddleware())

	s := &Server{
		runner: runner,
		engine: engine,
		addr:   addr,
	}

	api := engine.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/health", s.handleHealth)
	}
	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the HTTP server until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: streams are bounded by the pipeline's stage limits
	}

	log.Printf("[INFO] ummati server starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: server shutdown: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var history []models.Message
	if err := c.ShouldBindJSON(&history); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array of {role, content} messages: " + err.Error()})
		return
	}

	stream, err := s.runner.Run(c.Request.Context(), history)
	if err != nil {
		status := statusFor(err)
		if status != http.StatusBadRequest {
			log.Printf("Warning: chat request %s failed: %v", c.GetString(requestIDKey), err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	defer stream.Close()

	if wantsEventStream(c.Request) {
		s.writeEvents(c, stream)
		return
	}
	s.writePlain(c, stream)
}

// writePlain sends fragments as a chunked text body and the end state in a trailer
func (s *Server) writePlain(c *gin.Context, stream *core.Stream) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Trailer", StatusTrailer)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	for chunk := range stream.Chunks() {
		if _, err := c.Writer.WriteString(chunk.Text); err != nil {
			log.Printf("Warning: chat request %s: client write failed: %v", c.GetString(requestIDKey), err)
			stream.Close()
			break
		}
		c.Writer.Flush()
	}

	if err := stream.Err(); err != nil {
		log.Printf("Warning: chat request %s aborted: %v", c.GetString(requestIDKey), err)
		h.Set(StatusTrailer, core.StateErrored.String())
		return
	}
	h.Set(StatusTrailer, core.StateClosed.String())
}

// writeEvents sends fragments as message events followed by done or error.
// Event data is always a JSON object; raw text would lose a leading space
// and have CR rewritten by SSE line framing.
func (s *Server) writeEvents(c *gin.Context, stream *core.Stream) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for chunk := range stream.Chunks() {
		c.SSEvent("message", gin.H{"seq": chunk.Seq, "text": chunk.Text})
		c.Writer.Flush()
		if c.Request.Context().Err() != nil {
			stream.Close()
			break
		}
	}

	if err := stream.Err(); err != nil {
		log.Printf("Warning: chat request %s aborted: %v", c.GetString(requestIDKey), err)
		c.SSEvent("error", gin.H{"error": err.Error()})
	} else {
		c.SSEvent("done", gin.H{"status": core.StateClosed.String()})
	}
	c.Writer.Flush()
}

func wantsEventStream(r *http.Request) bool {
	for _, accept := range r.Header.Values("Accept") {
		if accept == "text/event-stream" {
			return true
		}
	}
	return false
}

// statusFor maps a pre-stream pipeline error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidHistory):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
