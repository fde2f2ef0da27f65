package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ssau-fiit/codeshare-api/config"
	"github.com/ssau-fiit/codeshare-api/database"
	"github.com/ssau-fiit/codeshare-api/room"
)

// documentStore is everything the server needs from persistence.
type documentStore interface {
	room.DocumentStore
	Create(ctx context.Context, language string) (*database.Document, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type server struct {
	store        documentStore
	coordinator  *room.Coordinator
	hub          *hub
	storeTimeout time.Duration
}

func newServer(store documentStore, storeTimeout time.Duration) *server {
	h := newHub()
	return &server{
		store:        store,
		hub:          h,
		coordinator:  room.NewCoordinator(store, h, room.Options{StoreTimeout: storeTimeout}),
		storeTimeout: storeTimeout,
	}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.POST("/documents", s.handleCreateDocument)
	v1.GET("/documents/:id", s.handleGetDocument)
	v1.GET("/ws", s.handleSocket)
	return r
}

// requestLogger logs every request through zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *server) handleCreateDocument(c *gin.Context) {
	var r CreateDocRequest
	if c.Request.ContentLength != 0 {
		if err := c.BindJSON(&r); err != nil {
			log.Error().Err(err).Msg("bad request")
			return
		}
	}
	if err := r.Validate(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if r.Language == "" {
		r.Language = config.DefaultLanguage
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.storeTimeout)
	defer cancel()

	doc, err := s.store.Create(ctx, r.Language)
	if err != nil {
		log.Error().Err(err).Msg("error creating document")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to create document"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (s *server) handleGetDocument(c *gin.Context) {
	docID := c.Param("id")
	if docID == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.storeTimeout)
	defer cancel()

	doc, err := s.store.Get(ctx, docID)
	if errors.Is(err, database.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("document", docID).Msg("error getting document")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to get document"})
		return
	}
	if doc.Expired(time.Now()) {
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "document has expired"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (s *server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.storeTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("store ping failed")
		status, code = "store unavailable", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":      status,
		"rooms":       s.coordinator.Rooms(),
		"connections": s.hub.Len(),
	})
}
