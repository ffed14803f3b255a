// Command ws_chat is an interactive client for a running "hashchat serve".
// It logs in over HTTP, joins a room and streams events from /ws.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/log"
	"github.com/vovakirdan/hashchat-engine/internal/proto"
)

// outbound mirrors proto.Outbound with Data left undecoded.
type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	logger := log.New("info")
	if err := run(logger); err != nil {
		logger.Error().Err(err).Msg("ws_chat")
		os.Exit(1)
	}
}

func run(logger *zerolog.Logger) error {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	email := flag.String("email", "demo@hashchat.com", "account email")
	password := flag.String("password", "demo123", "account password")
	room := flag.String("room", "GEN001", "room name or join code")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	token, err := login(ctx, *addr, *email, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	wsURL := strings.Replace(*addr, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		return wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload})
	}

	if err := send(proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	var ready outbound
	if err := wsjson.Read(ctx, conn, &ready); err != nil {
		return fmt.Errorf("read ready: %w", err)
	}
	if ready.Type != proto.OutboundTypeReady {
		return fmt.Errorf("handshake rejected: %+v", ready.Error)
	}
	if err := send(proto.InboundTypeJoin, proto.JoinData{Room: *room}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s\n", *addr, *email)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn, logger)
	}()

	writeLoop(ctx, send, logger)
	return nil
}

func login(ctx context.Context, addr, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var auth struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %s", resp.Status, auth.Error)
	}
	return auth.Token, nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, logger *zerolog.Logger) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			logger.Warn().Err(err).Msg("read error")
			return
		}

		if out.Type == proto.OutboundTypeError && out.Error != nil {
			fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}

		switch out.Event {
		case proto.EventMessage:
			var evt proto.MessageData
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				logger.Warn().Err(err).Msg("unmarshal message")
				continue
			}
			fmt.Printf("[%s] %s: %s\n", evt.SentAt, evt.Sender, evt.Body)
		case proto.EventTyping:
			var evt proto.TypingData
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				logger.Warn().Err(err).Msg("unmarshal typing")
				continue
			}
			fmt.Printf("  %s is typing...\n", evt.User)
		case proto.EventNotice:
			var evt proto.NoticeData
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				logger.Warn().Err(err).Msg("unmarshal notice")
				continue
			}
			fmt.Printf("  -- %s\n", evt.Text)
		case proto.EventRoomChanged:
			var evt proto.RoomChangedData
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				logger.Warn().Err(err).Msg("unmarshal room_changed")
				continue
			}
			if evt.Left {
				fmt.Println("  -- left the room")
			} else {
				fmt.Printf("  -- now in %s (%s)\n", evt.Name, evt.Code)
			}
		}
	}
}

func writeLoop(ctx context.Context, send func(string, any) error, logger *zerolog.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "/leave" {
				if err := send(proto.InboundTypeLeave, struct{}{}); err != nil {
					logger.Warn().Err(err).Msg("send leave")
					return
				}
				continue
			}
			if err := send(proto.InboundTypeMsg, proto.MsgData{Text: text}); err != nil {
				logger.Warn().Err(err).Msg("send error")
				return
			}
		}
	}
}
