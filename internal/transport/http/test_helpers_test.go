package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/vovakirdan/hashchat-engine/internal/attachment"
	"github.com/vovakirdan/hashchat-engine/internal/auth"
	"github.com/vovakirdan/hashchat-engine/internal/config"
	"github.com/vovakirdan/hashchat-engine/internal/engine"
	"github.com/vovakirdan/hashchat-engine/internal/messages"
	"github.com/vovakirdan/hashchat-engine/internal/metrics"
	"github.com/vovakirdan/hashchat-engine/internal/rooms"
	"github.com/vovakirdan/hashchat-engine/internal/schedule"
	"github.com/vovakirdan/hashchat-engine/internal/simulator"
	"github.com/vovakirdan/hashchat-engine/internal/store/memory"
)

const (
	demoEmail    = "demo@hashchat.com"
	demoPassword = "demo123"
)

// pngHeader is enough for MIME sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type neverRandom struct{}

func (neverRandom) Float64() float64 { return 0.99 }
func (neverRandom) IntN(int) int     { return 0 }

type testServer struct {
	handler http.Handler
	engine  *engine.Engine
	sched   *schedule.Manual
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory
	cfg.RateLimit.RPS = 0
	if mutate != nil {
		mutate(&cfg)
	}

	st := memory.New()
	dir, err := auth.NewDirectory(bcrypt.MinCost, auth.DefaultCredentials...)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	session := auth.NewSessionStore(ctx, st, auth.Options{
		Directory:  dir,
		Tokens:     auth.TokenConfig{Secret: []byte("transport-test"), TTL: time.Hour},
		BcryptCost: bcrypt.MinCost,
	}, &logger)
	registry, err := rooms.NewRegistry(ctx, st, &logger)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	m := metrics.New()
	sched := schedule.NewManual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	eng := engine.New(engine.Options{
		Session:   session,
		Rooms:     registry,
		Log:       messages.New(st, nil, &logger),
		Simulator: simulator.DefaultConfig(),
		Scheduler: sched,
		Random:    neverRandom{},
		Metrics:   m,
	}, &logger)
	if err := eng.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(eng.Close)

	server := NewServer(Deps{
		Engine:      eng,
		Attachments: attachment.NewProducer(1024, &logger),
		Metrics:     m,
	}, &cfg, &logger)
	return &testServer{handler: server.Handler, engine: eng, sched: sched, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) upload(t *testing.T, path, token string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "pic.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/login", "", LoginRequest{Email: demoEmail, Password: demoPassword})
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var auth AuthResponse
	decode(t, resp, &auth)
	if auth.Token == "" {
		t.Fatalf("login returned empty token")
	}
	return auth.Token
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", resp.Body.String(), err)
	}
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}
