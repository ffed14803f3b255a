package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/attachment"
	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/engine"
)

// RoomHandlers provides HTTP handlers for rooms and the active room's log.
type RoomHandlers struct {
	engine      *engine.Engine
	attachments *attachment.Producer
	log         *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(eng *engine.Engine, attachments *attachment.Producer, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		engine:      eng,
		attachments: attachments,
		log:         logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// JoinRoomRequest accepts a room name or join code.
type JoinRoomRequest struct {
	Room string `json:"room"`
}

// SendMessageRequest carries a text message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// CurrentRoomResponse wraps the current room, null when none is entered.
type CurrentRoomResponse struct {
	Room *core.Room `json:"room"`
}

// ListRooms returns the catalog.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Rooms())
}

// CreateRoom creates and enters a room.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.engine.Create(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, h.log, err, "failed to create room")
		return
	}
	c.JSON(http.StatusCreated, room)
}

// JoinRoom enters a room by name or code.
// POST /api/rooms/join
func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid join room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.engine.Join(c.Request.Context(), req.Room)
	if err != nil {
		writeError(c, h.log, err, "failed to join room")
		return
	}
	c.JSON(http.StatusOK, room)
}

// LeaveRoom leaves the current room.
// POST /api/rooms/leave
func (h *RoomHandlers) LeaveRoom(c *gin.Context) {
	if err := h.engine.Leave(c.Request.Context()); err != nil {
		writeError(c, h.log, err, "failed to leave room")
		return
	}
	c.Status(http.StatusNoContent)
}

// CurrentRoom returns the entered room.
// GET /api/rooms/current
func (h *RoomHandlers) CurrentRoom(c *gin.Context) {
	var resp CurrentRoomResponse
	if room, ok := h.engine.CurrentRoom(); ok {
		resp.Room = &room
	}
	c.JSON(http.StatusOK, resp)
}

// ListMessages returns the active room's history.
// GET /api/messages
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	if _, ok := h.engine.CurrentRoom(); !ok {
		writeError(c, h.log, core.ErrNoActiveRoom, "no active room")
		return
	}
	c.JSON(http.StatusOK, h.engine.Messages())
}

// SendMessage appends a text message.
// POST /api/messages
func (h *RoomHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.engine.Send(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, h.log, err, "failed to send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// SendAttachment encodes the uploaded image and appends it.
// POST /api/attachments (multipart field "file")
func (h *RoomHandlers) SendAttachment(c *gin.Context) {
	if _, ok := h.engine.CurrentRoom(); !ok {
		writeError(c, h.log, core.ErrNoActiveRoom, "no active room")
		return
	}
	res, ok := readUpload(c, h.attachments, h.log)
	if !ok {
		return
	}

	msg, err := h.engine.SendAttachment(c.Request.Context(), res.Ref)
	if err != nil {
		writeError(c, h.log, err, "failed to send attachment")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Presence returns the simulated roster.
// GET /api/presence
func (h *RoomHandlers) Presence(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Presence())
}

// Activity returns the current room with its typing and notice state.
// GET /api/activity
func (h *RoomHandlers) Activity(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Activity())
}
