package http

import (
	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/proto"
)

// Protocol error codes.
const (
	codeBadRequest         = "bad_request"
	codeUnauthorized       = "unauthorized"
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeInternal           = "internal"
	codeInvalidMessage     = "invalid_message"
	codeUnsupportedVersion = "unsupported_version"
)

func outboundFromEvent(event core.Event) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent}
	switch event.Kind {
	case core.EventMessage:
		msg := event.Message
		out.Event = proto.EventMessage
		out.Data = proto.MessageData{
			Room:          event.RoomID,
			ID:            msg.ID,
			SenderID:      msg.SenderID,
			Sender:        msg.SenderDisplayName,
			Body:          msg.Body,
			Kind:          string(msg.Kind),
			AttachmentRef: msg.AttachmentRef,
			SentAt:        msg.SentAt,
		}
	case core.EventTyping:
		out.Event = proto.EventTyping
		out.Data = proto.TypingData{Room: event.RoomID, User: event.Typing}
	case core.EventTypingCleared:
		out.Event = proto.EventTypingCleared
		out.Data = proto.TypingData{Room: event.RoomID}
	case core.EventNotice:
		n := event.Notice
		out.Event = proto.EventNotice
		out.Data = proto.NoticeData{
			Room: event.RoomID,
			Kind: string(n.Kind),
			User: n.DisplayName,
			Text: n.Text(),
			TS:   n.At.Unix(),
		}
	case core.EventRoomChanged:
		out.Event = proto.EventRoomChanged
		if event.Room == nil {
			out.Data = proto.RoomChangedData{Room: event.RoomID, Left: true}
		} else {
			out.Data = proto.RoomChangedData{Room: event.Room.ID, Name: event.Room.Name, Code: event.Room.JoinCode}
		}
	default:
		out.Event = event.Kind.String()
	}
	return out
}

func errorOutbound(code, msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}

// errorFromDomain maps an engine failure onto a protocol error.
func errorFromDomain(err error) proto.Outbound {
	switch core.KindOf(err) {
	case core.KindValidation:
		return errorOutbound(codeBadRequest, err.Error())
	case core.KindAuth:
		return errorOutbound(codeUnauthorized, err.Error())
	case core.KindNotFound:
		return errorOutbound(codeNotFound, err.Error())
	case core.KindState:
		return errorOutbound(codeConflict, err.Error())
	default:
		return errorOutbound(codeInternal, "internal error")
	}
}
