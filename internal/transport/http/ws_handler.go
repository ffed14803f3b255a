package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/engine"
	"github.com/vovakirdan/hashchat-engine/internal/proto"
)

const helloTimeout = 10 * time.Second

// WSHandler upgrades HTTP connections and streams engine events to them.
type WSHandler struct {
	engine *engine.Engine
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(eng *engine.Engine, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{engine: eng, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	token, ok := h.handshake(ctx, conn)
	if !ok {
		conn.Close(websocket.StatusPolicyViolation, "handshake failed")
		return
	}

	events, unsubscribe := h.engine.Subscribe(engine.DefaultBuffer)
	defer unsubscribe()

	identity := h.engine.Session().Identity()
	name := ""
	if identity != nil {
		name = identity.DisplayName
	}
	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type: proto.OutboundTypeReady,
		Data: proto.ReadyData{User: name, Protocol: proto.ProtocolVersion},
	}); err != nil {
		h.log.Warn().Err(err).Msg("write ready")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, token)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, events)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake reads the hello frame and checks its token against the session.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		h.log.Debug().Err(err).Msg("read ws hello")
		return "", false
	}
	if inbound.Type != proto.InboundTypeHello {
		h.reply(ctx, conn, errorOutbound(codeInvalidMessage, "hello required"))
		return "", false
	}
	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		h.reply(ctx, conn, errorOutbound(codeInvalidMessage, "malformed hello"))
		return "", false
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		h.reply(ctx, conn, errorOutbound(codeUnsupportedVersion, "unsupported protocol version"))
		return "", false
	}
	if _, err := h.engine.Session().Authorize(hello.Token); err != nil {
		h.reply(ctx, conn, errorOutbound(codeUnauthorized, "invalid token"))
		return "", false
	}
	return hello.Token, true
}

func (h *WSHandler) reply(ctx context.Context, conn *websocket.Conn, out proto.Outbound) {
	if err := wsjson.Write(ctx, conn, out); err != nil {
		h.log.Debug().Err(err).Msg("write ws reply")
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, token string) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		// The session may have ended since the hello.
		if _, err := h.engine.Session().Authorize(token); err != nil {
			h.reply(ctx, conn, errorOutbound(codeUnauthorized, "session ended"))
			return nil
		}
		if out, ok := h.dispatch(ctx, inbound); ok {
			if err := wsjson.Write(ctx, conn, out); err != nil {
				return err
			}
		}
	}
}

// dispatch runs one command. It returns an outbound frame only on failure;
// successes are reported through the event stream.
func (h *WSHandler) dispatch(ctx context.Context, inbound proto.Inbound) (proto.Outbound, bool) {
	var err error
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if jsonErr := json.Unmarshal(inbound.Data, &join); jsonErr != nil {
			return errorOutbound(codeInvalidMessage, "malformed join"), true
		}
		_, err = h.engine.JoinOrCreate(ctx, join.Room, join.Create)
	case proto.InboundTypeLeave:
		err = h.engine.Leave(ctx)
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if jsonErr := json.Unmarshal(inbound.Data, &msg); jsonErr != nil {
			return errorOutbound(codeInvalidMessage, "malformed msg"), true
		}
		_, err = h.engine.Send(ctx, msg.Text)
	default:
		return errorOutbound(codeInvalidMessage, "unknown message type"), true
	}
	if err != nil {
		if core.KindOf(err) == "" {
			h.log.Error().Err(err).Str("type", inbound.Type).Msg("ws command failed")
		}
		return errorFromDomain(err), true
	}
	return proto.Outbound{}, false
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan core.Event) error {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
