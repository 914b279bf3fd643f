// Package server implements the CampusMark sync API: the remote side of
// the offline-first client, a per-user document store with bulk upserts.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusmark/internal/auth"
	"campusmark/internal/model"
	"campusmark/internal/store"
)

// Store is the persistence surface the handlers need. The Postgres
// Repository implements it; tests use an in-memory fake.
type Store interface {
	UpsertRecords(ctx context.Context, userID string, records []model.Record) (int, error)
	UpsertCourses(ctx context.Context, userID string, courses []model.Course) (int, error)
	UpsertSemesters(ctx context.Context, userID string, semesters []model.Semester) (int, error)
	FetchUserData(ctx context.Context, userID string) (model.Data, error)
	DeleteUserData(ctx context.Context, userID string) error
}

// Server holds the handler dependencies.
type Server struct {
	store     Store
	cache     *store.Redis
	dbHealthy func(ctx context.Context) bool

	verifyGoogle func(idToken string) (auth.GoogleUser, error)
	signingKey   string
	issuer       string
	sessionTTL   time.Duration
}

// New wires a server. cache may be nil; dbHealthy nil means unknown-unhealthy.
func New(st Store, cache *store.Redis, dbHealthy func(ctx context.Context) bool, verifier auth.GoogleVerifier, signingKey, issuer string, sessionTTL time.Duration) *Server {
	if dbHealthy == nil {
		dbHealthy = func(context.Context) bool { return false }
	}
	return &Server{
		store:        st,
		cache:        cache,
		dbHealthy:    dbHealthy,
		verifyGoogle: verifier.Verify,
		signingKey:   signingKey,
		issuer:       issuer,
		sessionTTL:   sessionTTL,
	}
}

// Register mounts the API routes under /api.
func (s *Server) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/auth/google", s.handleGoogleAuth)

	authed := api.Group("", auth.UserAuth(s.signingKey, s.issuer))
	authed.POST("/sync/records", s.handleSyncRecords)
	authed.POST("/sync/courses", s.handleSyncCourses)
	authed.POST("/sync/semesters", s.handleSyncSemesters)
	authed.GET("/data", s.handleFetchData)
	authed.DELETE("/data", s.handleDeleteData)
}

func (s *Server) handleHealth(c *gin.Context) {
	database := "disconnected"
	if s.dbHealthy(c.Request.Context()) {
		database = "connected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": database,
		"cache":    s.cache.Healthy(c.Request.Context()),
	})
}

func (s *Server) handleGoogleAuth(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing idToken"})
		return
	}

	user, err := s.verifyGoogle(req.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid google id token"})
		return
	}

	token, exp, err := auth.IssueSession(user.Email, user.Name, s.issuer, s.signingKey, s.sessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp.Unix(),
		"profile":    model.UserProfile{Name: user.Name, Email: user.Email},
	})
}

// requireUser enforces that the authenticated subject matches the
// partition key being accessed.
func requireUser(c *gin.Context, userID string) bool {
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing userId"})
		return false
	}
	if subject := auth.Subject(c); subject != "" && subject != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "user mismatch"})
		return false
	}
	return true
}

func (s *Server) handleSyncRecords(c *gin.Context) {
	var req struct {
		Records []model.Record `json:"records"`
		UserID  string         `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Records == nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing records or userId"})
		return
	}
	if !requireUser(c, req.UserID) {
		return
	}

	unsynced := make([]model.Record, 0, len(req.Records))
	for _, r := range req.Records {
		if !r.IsSynced {
			unsynced = append(unsynced, r)
		}
	}

	count := 0
	if len(unsynced) > 0 {
		var err error
		count, err = s.store.UpsertRecords(c.Request.Context(), req.UserID, unsynced)
		if err != nil {
			log.Printf("sync records error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync records"})
			return
		}
		s.cache.InvalidateSnapshot(c.Request.Context(), req.UserID)
	}

	syncedItems.WithLabelValues("records").Add(float64(count))
	c.JSON(http.StatusOK, gin.H{"success": true, "synced": count})
}

func (s *Server) handleSyncCourses(c *gin.Context) {
	var req struct {
		Courses []model.Course `json:"courses"`
		UserID  string         `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Courses == nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing courses or userId"})
		return
	}
	if !requireUser(c, req.UserID) {
		return
	}

	unsynced := make([]model.Course, 0, len(req.Courses))
	for _, course := range req.Courses {
		if !course.IsSynced {
			unsynced = append(unsynced, course)
		}
	}

	count := 0
	if len(unsynced) > 0 {
		var err error
		count, err = s.store.UpsertCourses(c.Request.Context(), req.UserID, unsynced)
		if err != nil {
			log.Printf("sync courses error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync courses"})
			return
		}
		s.cache.InvalidateSnapshot(c.Request.Context(), req.UserID)
	}

	syncedItems.WithLabelValues("courses").Add(float64(count))
	c.JSON(http.StatusOK, gin.H{"success": true, "synced": count})
}

func (s *Server) handleSyncSemesters(c *gin.Context) {
	var req struct {
		Semesters []model.Semester `json:"semesters"`
		UserID    string           `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Semesters == nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing semesters or userId"})
		return
	}
	if !requireUser(c, req.UserID) {
		return
	}

	unsynced := make([]model.Semester, 0, len(req.Semesters))
	for _, sem := range req.Semesters {
		if !sem.IsSynced {
			unsynced = append(unsynced, sem)
		}
	}

	count := 0
	if len(unsynced) > 0 {
		var err error
		count, err = s.store.UpsertSemesters(c.Request.Context(), req.UserID, unsynced)
		if err != nil {
			log.Printf("sync semesters error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync semesters"})
			return
		}
		s.cache.InvalidateSnapshot(c.Request.Context(), req.UserID)
	}

	syncedItems.WithLabelValues("semesters").Add(float64(count))
	c.JSON(http.StatusOK, gin.H{"success": true, "synced": count})
}

func (s *Server) handleFetchData(c *gin.Context) {
	userID := c.Query("userId")
	if !requireUser(c, userID) {
		return
	}

	if d, ok := s.cache.Snapshot(c.Request.Context(), userID); ok {
		fetchRequests.WithLabelValues("hit").Inc()
		c.JSON(http.StatusOK, normalize(d))
		return
	}

	d, err := s.store.FetchUserData(c.Request.Context(), userID)
	if err != nil {
		log.Printf("fetch data error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch data"})
		return
	}
	s.cache.SetSnapshot(c.Request.Context(), userID, d)

	fetchRequests.WithLabelValues("miss").Inc()
	c.JSON(http.StatusOK, normalize(d))
}

func (s *Server) handleDeleteData(c *gin.Context) {
	userID := c.Query("userId")
	if !requireUser(c, userID) {
		return
	}

	if err := s.store.DeleteUserData(c.Request.Context(), userID); err != nil {
		log.Printf("delete data error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete data"})
		return
	}
	s.cache.InvalidateSnapshot(c.Request.Context(), userID)

	deleteRequests.Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All user data deleted"})
}

// normalize replaces nil collections with empty ones so the wire format
// always carries arrays.
func normalize(d model.Data) model.Data {
	if d.Records == nil {
		d.Records = []model.Record{}
	}
	if d.Courses == nil {
		d.Courses = []model.Course{}
	}
	if d.Semesters == nil {
		d.Semesters = []model.Semester{}
	}
	return d
}
