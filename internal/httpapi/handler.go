package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classroom/internal/auth"
	"classroom/internal/queue"
	"classroom/internal/school"
)

// Handler carries the HTTP surface over the school service.
type Handler struct {
	svc          *school.Service
	q            queue.Queue
	jwtIssuer    string
	jwtKey       string
	tokenTTL     time.Duration
	cookieSecure bool
}

// New creates a handler. q may be nil when auditing is disabled.
func New(svc *school.Service, q queue.Queue, jwtIssuer, jwtKey string, tokenTTL time.Duration, cookieSecure bool) *Handler {
	return &Handler{
		svc:          svc,
		q:            q,
		jwtIssuer:    jwtIssuer,
		jwtKey:       jwtKey,
		tokenTTL:     tokenTTL,
		cookieSecure: cookieSecure,
	}
}

// Register wires the REST routes. requireUser gates everything under
// /api/classroom; listings stay public like the original dashboards expect.
func (h *Handler) Register(r *gin.Engine, requireUser gin.HandlerFunc) {
	r.POST("/api/auth/register", h.RegisterUser)
	r.POST("/api/auth/login", h.Login)

	classroom := r.Group("/api/classroom", requireUser)
	classroom.POST("/create", h.CreateClassroom)
	classroom.PUT("/assign-teacher/:classroomId", h.AssignTeacher)
	classroom.PUT("/edit/:classroomId", h.EditClassroom)
	classroom.PUT("/add-students/:classroomId", h.AddStudents)
	classroom.PUT("/remove-students/:classroomId", h.RemoveStudents)
	classroom.DELETE("/users/:userId", h.DeleteUser)
	classroom.DELETE("/:classroomId", h.DeleteClassroom)

	r.GET("/list", h.ListUsers)
	r.GET("/list-classroom", h.ListClassrooms)
}

// ---------- Auth ----------

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RegisterUser creates an account and signs the caller in.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.svc.Register(c.Request.Context(), school.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		var verr *school.ValidationError
		switch {
		case errors.As(err, &verr):
			authFailuresTotal.WithLabelValues("validation").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
		case errors.Is(err, school.ErrEmailTaken):
			authFailuresTotal.WithLabelValues("duplicate_email").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
		default:
			log.Printf("register failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		}
		return
	}

	token := h.issueSession(c, u)
	h.audit(c, u.ID, "user.register", u.ID, "")
	c.JSON(http.StatusCreated, gin.H{"msg": "User registered successfully", "user": u, "token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and sets the identity cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, school.ErrInvalidCredentials) {
			authFailuresTotal.WithLabelValues("bad_credentials").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
			return
		}
		log.Printf("login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	token := h.issueSession(c, u)
	c.JSON(http.StatusOK, gin.H{"msg": "Logged in successfully", "user": u, "token": token})
}

// issueSession issues the token and sets the httpOnly cookie. The token is
// also returned in the body for header-transport clients.
func (h *Handler) issueSession(c *gin.Context, u school.User) string {
	token, _, err := auth.Issue(u.ID, u.Role, h.jwtIssuer, h.jwtKey, h.tokenTTL)
	if err != nil {
		log.Printf("token issue failed: %v", err)
		return ""
	}
	c.SetCookie(auth.CookieName, token, int(h.tokenTTL.Seconds()), "/", "", h.cookieSecure, true)
	return token
}

// ---------- Classrooms ----------

type createClassroomRequest struct {
	Name      string   `json:"name"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Days      []string `json:"days"`
}

// CreateClassroom handles principal-only classroom creation.
func (h *Handler) CreateClassroom(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}
	var req createClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	classroom, err := h.svc.CreateClassroom(c.Request.Context(), identity, school.ClassroomSpec{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Days:      req.Days,
	})
	recordMutation("create_classroom", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, identity.UserID, string(school.ActionCreateClassroom), classroom.ID, classroom.Name)
	c.JSON(http.StatusOK, classroom)
}

type assignTeacherRequest struct {
	TeacherID string `json:"teacherId" binding:"required"`
}

// AssignTeacher sets the classroom's teacher (principal only).
func (h *Handler) AssignTeacher(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}
	var req assignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	classroom, err := h.svc.AssignTeacher(c.Request.Context(), identity, c.Param("classroomId"), req.TeacherID)
	recordMutation("assign_teacher", err)
	if err != nil {
		if errors.Is(err, school.ErrNotTeacher) {
			c.JSON(http.StatusNotFound, gin.H{"error": "teacher not found"})
			return
		}
		h.writeError(c, err)
		return
	}
	h.audit(c, identity.UserID, string(school.ActionAssignTeacher), classroom.ID, req.TeacherID)
	c.JSON(http.StatusOK, classroom)
}

type editClassroomRequest struct {
	Name      *string  `json:"name"`
	StartTime *string  `json:"startTime"`
	EndTime   *string  `json:"endTime"`
	Days      []string `json:"days"`
}

// EditClassroom applies a partial update (principal only).
func (h *Handler) EditClassroom(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}
	var req editClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	classroom, err := h.svc.EditClassroom(c.Request.Context(), identity, c.Param("classroomId"), school.EditSpec{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Days:      req.Days,
	})
	recordMutation("edit_classroom", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, identity.UserID, string(school.ActionEditClassroom), classroom.ID, "")
	c.JSON(http.StatusOK, gin.H{"msg": "Classroom details updated", "classroom": classroom})
}

type rosterRequest struct {
	StudentIDs []string `json:"studentIds" binding:"required"`
}

// AddStudents adds the resolvable student ids to the roster (principal or
// assigned teacher). Unknown ids are skipped, not rejected.
func (h *Handler) AddStudents(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	classroom, err := h.svc.AddStudents(c.Request.Context(), identity, c.Param("classroomId"), req.StudentIDs)
	recordMutation("add_students", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, identity.UserID, string(school.ActionAddStudents), classroom.ID, "")
	c.JSON(http.StatusOK, classroom)
}

// RemoveStudents drops the listed ids from the roster (principal or assigned
// teacher). Absent ids are no-ops.
func (h *Handler) RemoveStudents(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	classroom, err := h.svc.RemoveStudents(c.Request.Context(), identity, c.Param("classroomId"), req.StudentIDs)
	recordMutation("remove_students", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, identity.UserID, string(school.ActionRemoveStudents), classroom.ID, "")
	c.JSON(http.StatusOK, classroom)
}

// DeleteClassroom removes a classroom (principal only).
func (h *Handler) DeleteClassroom(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}
	id := c.Param("classroomId")
	err := h.svc.DeleteClassroom(c.Request.Context(), identity, id)
	recordMutation("delete_classroom", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, identity.UserID, string(school.ActionDeleteClassroom), id, "")
	c.JSON(http.StatusOK, gin.H{"msg": "Classroom removed"})
}

// DeleteUser removes an account (principal only).
func (h *Handler) DeleteUser(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}
	id := c.Param("userId")
	err := h.svc.DeleteUser(c.Request.Context(), identity, id)
	recordMutation("delete_user", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, identity.UserID, string(school.ActionDeleteUser), id, "")
	c.JSON(http.StatusOK, gin.H{"msg": "User removed"})
}

// ---------- Listings ----------

// ListUsers returns every account.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		log.Printf("list users failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if users == nil {
		users = []school.User{}
	}
	c.JSON(http.StatusOK, users)
}

// ListClassrooms returns every classroom.
func (h *Handler) ListClassrooms(c *gin.Context) {
	classrooms, err := h.svc.ListClassrooms(c.Request.Context())
	if err != nil {
		log.Printf("list classrooms failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if classrooms == nil {
		classrooms = []school.Classroom{}
	}
	c.JSON(http.StatusOK, classrooms)
}

// ---------- helpers ----------

func identityFrom(c *gin.Context) (school.Identity, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return school.Identity{}, false
	}
	return school.Identity{UserID: claims.Subject, Role: claims.Role}, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *school.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
	case errors.Is(err, school.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "user not authorized"})
	case errors.Is(err, school.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

// audit publishes a best-effort audit message; failures log and never fail
// the request.
func (h *Handler) audit(c *gin.Context, actorID, action, subjectID, detail string) {
	if h.q == nil {
		return
	}
	body, err := json.Marshal(school.AuditEvent{
		ActorID:    actorID,
		Action:     action,
		SubjectID:  subjectID,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := h.q.Publish(c.Request.Context(), queue.Message{Type: "audit", Body: body}); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
