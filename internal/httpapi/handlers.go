// Package httpapi exposes the attendance service over HTTP.
package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/just-aakash/cyberknights/internal/auth"
	"github.com/just-aakash/cyberknights/internal/config"
	"github.com/just-aakash/cyberknights/internal/identity"
	"github.com/just-aakash/cyberknights/internal/intake"
	"github.com/just-aakash/cyberknights/internal/ledger"
	"github.com/just-aakash/cyberknights/internal/metrics"
	"github.com/just-aakash/cyberknights/internal/queue"
	"github.com/just-aakash/cyberknights/internal/roster"
	"github.com/just-aakash/cyberknights/internal/store"
)

// Handler wires the services to their routes.
type Handler struct {
	cfg      config.App
	st       store.Store
	identity *identity.Service
	roster   *roster.Service
	ledger   *ledger.Service
	photos   intake.Store
	events   queue.Queue
	redis    *store.Redis
}

// New creates a handler over the given services. redis may be nil when
// the deployment runs without it.
func New(cfg config.App, st store.Store, id *identity.Service, ros *roster.Service, led *ledger.Service, photos intake.Store, events queue.Queue, rds *store.Redis) *Handler {
	return &Handler{cfg: cfg, st: st, identity: id, roster: ros, ledger: led, photos: photos, events: events, redis: rds}
}

// Routes registers the API on r. Everything except /login sits behind
// the session gate, so no store access happens for an unauthenticated
// request.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.POST("/login", h.Login)

	gated := r.Group("/", auth.SessionAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	gated.POST("/change-password", h.ChangePassword)
	gated.POST("/students", h.RegisterStudent)
	gated.GET("/students", h.ListStudents)
	gated.GET("/lectures", h.ListLectures)
	gated.GET("/attendance/:lectureId", h.QueryAttendance)
	gated.POST("/attendance/mark", h.MarkAttendance)
}

// Healthz reports store and redis reachability. Redis is optional (the
// mark queue may run in-memory), so only an unreachable store turns the
// check unhealthy.
func (h *Handler) Healthz(c *gin.Context) {
	storeHealthy := h.st.Ping(c.Request.Context()) == nil
	redisHealthy := h.redis.Healthy(c.Request.Context())
	status := http.StatusOK
	if !storeHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "store": storeHealthy, "redis": redisHealthy})
}

// Login verifies credentials and issues a session token.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username and password required"})
		return
	}
	if !h.identity.Verify(c.Request.Context(), req.Username, req.Password) {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid username or password"})
		return
	}
	token, _, err := auth.Issue(req.Username, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.SessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token issue failed"})
		return
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ChangePassword rotates the caller's password after proving the
// current one.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "currentPassword and newPassword required"})
		return
	}
	name := auth.Identity(c)
	if err := h.identity.ChangePassword(c.Request.Context(), name, req.CurrentPassword, req.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// RegisterStudent accepts a multipart form with rollNo, name and exactly
// two files in the "photos" field. The photos go through the intake
// first; the roster only ever sees their references.
func (h *Handler) RegisterStudent(c *gin.Context) {
	rollNo := c.PostForm("rollNo")
	name := c.PostForm("name")
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "multipart form required"})
		return
	}
	files := form.File["photos"]
	if rollNo == "" || name == "" {
		metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "rollNo and name required"})
		return
	}
	if len(files) != 2 {
		metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "exactly 2 photos required"})
		return
	}

	refs := make([]string, 0, 2)
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.discardPhotos(c, refs)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "read photo failed"})
			return
		}
		ref, err := h.photos.Save(c.Request.Context(), f, fh.Filename)
		f.Close()
		if err != nil {
			log.Printf("photo intake failed: %v", err)
			h.discardPhotos(c, refs)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "photo upload failed"})
			return
		}
		refs = append(refs, ref)
	}

	student, err := h.roster.RegisterStudent(c.Request.Context(), rollNo, name, refs)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
		h.discardPhotos(c, refs)
		respondErr(c, err)
		return
	}
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "student registered", "student": student})
}

// discardPhotos best-effort removes intake refs left behind by a
// rejected registration. Backends without a Remover (the remote intake)
// keep their own lifecycle rules.
func (h *Handler) discardPhotos(c *gin.Context, refs []string) {
	rm, ok := h.photos.(intake.Remover)
	if !ok {
		return
	}
	for _, ref := range refs {
		if err := rm.Remove(c.Request.Context(), ref); err != nil {
			log.Printf("discard photo %s failed: %v", ref, err)
		}
	}
}

// ListStudents returns all registered students.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	if students == nil {
		students = []store.Student{}
	}
	c.JSON(http.StatusOK, students)
}

// ListLectures returns the lecture catalogue, seeding it when empty.
func (h *Handler) ListLectures(c *gin.Context) {
	lectures, err := h.roster.ListLectures(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	if lectures == nil {
		lectures = []store.Lecture{}
	}
	c.JSON(http.StatusOK, lectures)
}

// QueryAttendance returns the record for the lecture on the requested
// day (default: today). A day with no marks yields an empty record.
func (h *Handler) QueryAttendance(c *gin.Context) {
	at := ledger.ParseDate(c.Query("date"))
	rec, err := h.ledger.Query(c.Request.Context(), c.Param("lectureId"), at)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// MarkAttendance marks one student present for the lecture on the
// requested day. Repeat marks are rejected, not silently accepted.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req struct {
		LectureID string `json:"lectureId" binding:"required"`
		StudentID string `json:"studentId" binding:"required"`
		Date      string `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "lectureId and studentId required"})
		return
	}
	at := ledger.ParseDate(req.Date)
	rec, err := h.ledger.MarkPresent(c.Request.Context(), req.LectureID, req.StudentID, at)
	if err != nil {
		metrics.MarksTotal.WithLabelValues("rejected").Inc()
		respondErr(c, err)
		return
	}
	metrics.MarksTotal.WithLabelValues("ok").Inc()

	if h.events != nil {
		evt := queue.MarkEvent{
			Lecture:  req.LectureID,
			Student:  req.StudentID,
			Day:      store.DayKey(at),
			MarkedBy: auth.Identity(c),
			MarkedAt: time.Now().UTC(),
		}
		if err := h.events.Publish(c.Request.Context(), evt); err != nil {
			log.Printf("mark event publish failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked present", "attendance": rec})
}

// respondErr maps the store error taxonomy onto client responses.
// Conflicts surface as 400 with a message, matching the contract the
// front-end was built against.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
