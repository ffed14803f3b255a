package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/attachment"
	"github.com/vovakirdan/hashchat-engine/internal/auth"
	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/engine"
	"github.com/vovakirdan/hashchat-engine/internal/metrics"
)

// APIHandlers provides HTTP handlers for session endpoints.
type APIHandlers struct {
	session     *auth.SessionStore
	engine      *engine.Engine
	attachments *attachment.Producer
	metrics     *metrics.Metrics
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(session *auth.SessionStore, eng *engine.Engine, attachments *attachment.Producer, m *metrics.Metrics, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		session:     session,
		engine:      eng,
		attachments: attachments,
		metrics:     m,
		log:         logger,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest represents the signup request body. Field checks happen in
// the session store so the caller gets a readable reason.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest carries the verification code.
type VerifyRequest struct {
	Code string `json:"code"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string         `json:"token"`
	User  *core.Identity `json:"user"`
}

// PendingResponse reports that verification is required.
type PendingResponse struct {
	Status string `json:"status"`
	Email  string `json:"email"`
}

// ThemeResponse carries the theme preference.
type ThemeResponse struct {
	Theme core.Theme `json:"theme"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a domain failure kind to an HTTP status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as an ErrorResponse. Non-domain errors are logged and
// hidden behind a generic message.
func writeError(c *gin.Context, log *zerolog.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func (h *APIHandlers) observe(op string, err error) {
	if h.metrics != nil {
		h.metrics.AuthOps.WithLabelValues(op, metrics.Outcome(err)).Inc()
	}
}

// Login handles login against the credential directory.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	identity, err := h.session.Login(c.Request.Context(), req.Email, req.Password)
	h.observe("login", err)
	if err != nil {
		writeError(c, h.log, err, "failed to login")
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: h.session.Token(), User: identity})
}

// Signup starts a registration that must be verified.
// POST /api/signup
func (h *APIHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid signup request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.session.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	h.observe("signup", err)
	if err != nil {
		writeError(c, h.log, err, "failed to sign up")
		return
	}
	pending, _ := h.session.Pending()
	c.JSON(http.StatusAccepted, PendingResponse{Status: "verification_required", Email: pending.Email})
}

// Verify completes a pending registration.
// POST /api/verify
func (h *APIHandlers) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid verify request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	identity, err := h.session.VerifyOTP(c.Request.Context(), req.Code)
	h.observe("verify", err)
	if err != nil {
		writeError(c, h.log, err, "failed to verify code")
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: h.session.Token(), User: identity})
}

// ResendCode re-signals verification for the pending registration.
// POST /api/verify/resend
func (h *APIHandlers) ResendCode(c *gin.Context) {
	if err := h.session.ResendOTP(); err != nil {
		writeError(c, h.log, err, "failed to resend code")
		return
	}
	pending, _ := h.session.Pending()
	c.JSON(http.StatusAccepted, PendingResponse{Status: "verification_required", Email: pending.Email})
}

// AbandonSignup drops the pending registration.
// DELETE /api/signup
func (h *APIHandlers) AbandonSignup(c *gin.Context) {
	h.session.AbandonSignup()
	c.Status(http.StatusNoContent)
}

// Logout leaves the current room and ends the session.
// POST /api/logout
func (h *APIHandlers) Logout(c *gin.Context) {
	if err := h.engine.EndSession(c.Request.Context()); err != nil {
		writeError(c, h.log, err, "failed to logout")
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the current identity.
// GET /api/me
func (h *APIHandlers) Me(c *gin.Context) {
	identity := h.session.Identity()
	if identity == nil {
		writeError(c, h.log, core.ErrNoSession, "no identity")
		return
	}
	c.JSON(http.StatusOK, identity)
}

// UpdateProfile merges the given fields into the identity.
// PATCH /api/me
func (h *APIHandlers) UpdateProfile(c *gin.Context) {
	var req core.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid profile request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	h.applyProfile(c, req)
}

// UploadAvatar stores an uploaded image as the avatar.
// POST /api/me/avatar (multipart field "file")
func (h *APIHandlers) UploadAvatar(c *gin.Context) {
	res, ok := readUpload(c, h.attachments, h.log)
	if !ok {
		return
	}
	h.applyProfile(c, core.ProfileUpdate{AvatarRef: &res.Ref})
}

func (h *APIHandlers) applyProfile(c *gin.Context, upd core.ProfileUpdate) {
	identity, err := h.session.UpdateProfile(c.Request.Context(), upd)
	if err != nil {
		writeError(c, h.log, err, "failed to update profile")
		return
	}
	if identity == nil {
		writeError(c, h.log, core.ErrNoSession, "no identity")
		return
	}
	c.JSON(http.StatusOK, identity)
}

// Theme returns the stored theme.
// GET /api/theme
func (h *APIHandlers) Theme(c *gin.Context) {
	c.JSON(http.StatusOK, ThemeResponse{Theme: h.session.Theme()})
}

// ToggleTheme flips the theme. It works with or without a session.
// POST /api/theme/toggle
func (h *APIHandlers) ToggleTheme(c *gin.Context) {
	theme, err := h.session.ToggleTheme(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err, "failed to toggle theme")
		return
	}
	c.JSON(http.StatusOK, ThemeResponse{Theme: theme})
}

// readUpload turns the multipart "file" field into a data URI. On failure
// the response is already written.
func readUpload(c *gin.Context, producer *attachment.Producer, log *zerolog.Logger) (attachment.Result, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, producer.MaxBytes()+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file is too large"})
			return attachment.Result{}, false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return attachment.Result{}, false
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, log, err, "failed to open upload")
		return attachment.Result{}, false
	}
	defer file.Close()

	res := <-producer.Produce(c.Request.Context(), file)
	if res.Err != nil {
		writeError(c, log, res.Err, "failed to encode upload")
		return attachment.Result{}, false
	}
	return res, true
}
