package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/npatel023/tutorgraph/internal/store"
	"github.com/npatel023/tutorgraph/internal/tutor"
)

var validate = validator.New()

type startSessionRequest struct {
	Topic  string `json:"topic" validate:"required,min=1,max=200"`
	Level  string `json:"level" validate:"required,min=1,max=100"`
	UserID string `json:"user_id" validate:"omitempty,max=100"`
}

type turnRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

type forkRequest struct {
	UserID string `json:"user_id" validate:"required,min=1,max=100"`
}

type messageView struct {
	ID       uuid.UUID      `json:"id"`
	Sequence int64          `json:"sequence"`
	Role     string         `json:"role"`
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type sessionView struct {
	ID          uuid.UUID  `json:"id"`
	Topic       string     `json:"topic"`
	Level       string     `json:"level"`
	LessonTitle string     `json:"lesson_title"`
	Mode        string     `json:"mode"`
	SyllabusUID *uuid.UUID `json:"syllabus_uid,omitempty"`
}

func (s *Server) startSession(c *gin.Context) {
	var req startSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, messages, err := s.machine.StartSession(c.Request.Context(), req.Topic, req.Level, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session":  viewSession(session),
		"messages": viewMessages(messages),
	})
}

func (s *Server) processTurn(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req turnRequest
	if !bindAndValidate(c, &req) {
		return
	}

	messages, err := s.machine.ProcessTurn(c.Request.Context(), sessionID, tutor.UserMessage{Text: req.Text})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": viewMessages(messages)})
}

func (s *Server) listMessages(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	messages, err := s.messages.List(c.Request.Context(), sessionID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": viewMessages(messages)})
}

func (s *Server) resolveSyllabus(c *gin.Context) {
	topic := strings.TrimSpace(c.Query("topic"))
	level := strings.TrimSpace(c.Query("level"))
	if topic == "" || level == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic and level are required"})
		return
	}
	syl, err := s.syllabi.Resolve(c.Request.Context(), topic, level, strings.TrimSpace(c.Query("user_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewSyllabus(syl))
}

func (s *Server) forkSyllabus(c *gin.Context) {
	uid, ok := pathUUID(c, "uid")
	if !ok {
		return
	}
	var req forkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	source, err := s.syllabi.Get(c.Request.Context(), uid)
	if err != nil {
		s.respondError(c, err)
		return
	}
	fork, err := s.syllabi.ForkForUser(c.Request.Context(), source, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewSyllabus(fork))
}

func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) respondError(c *gin.Context, err error) {
	var validation *tutor.ValidationError
	var notFound *store.NotFoundError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.Is(err, tutor.ErrTurnInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "a turn is already being processed for this session"})
	default:
		s.log.Errorw("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func viewSession(session *store.LessonSession) sessionView {
	return sessionView{
		ID:          session.ID,
		Topic:       session.Topic,
		Level:       session.Level,
		LessonTitle: session.LessonTitle,
		Mode:        string(session.Mode),
		SyllabusUID: session.SyllabusUID,
	}
}

func viewMessages(messages []store.ConversationMessage) []messageView {
	out := make([]messageView, 0, len(messages))
	for _, msg := range messages {
		out = append(out, messageView{
			ID:       msg.ID,
			Sequence: msg.Sequence,
			Role:     string(msg.Role),
			Type:     string(msg.Type),
			Content:  msg.Content,
			Metadata: msg.Metadata,
		})
	}
	return out
}

func viewSyllabus(syl *store.Syllabus) gin.H {
	view := gin.H{
		"uid":       syl.UID,
		"topic":     syl.Topic,
		"level":     syl.Level,
		"is_master": syl.IsMaster,
		"modules":   syl.Modules,
	}
	if syl.ParentUID != nil {
		view["parent_uid"] = *syl.ParentUID
	}
	if syl.UserID != nil {
		view["user_id"] = *syl.UserID
	}
	return view
}
