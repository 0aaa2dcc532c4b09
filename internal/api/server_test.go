package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zulandar/supportline/internal/models"
	"github.com/zulandar/supportline/internal/orchestrator"
	"github.com/zulandar/supportline/internal/realtime"
	"github.com/zulandar/supportline/internal/unread"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db     *gorm.DB
	hub    *realtime.Hub
	orch   *orchestrator.Orchestrator
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Player{}, &models.Operator{}, &models.Chat{}, &models.Message{}, &models.AutoReply{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	db.Create(&models.Player{ID: 7, Username: "lucky7", Email: "lucky7@example.com"})
	db.Create(&models.Operator{ID: 1, Username: "desk", Role: "admin"})
	db.Create(&models.Operator{ID: 3, Username: "partner", Role: "affiliate"})
	db.Create(&models.AutoReply{Keyword: "hours", ReplyMessage: "We are open 24/7.", IsActive: true})

	hub := realtime.NewHub()
	orch, err := orchestrator.New(orchestrator.Opts{DB: db, Broadcaster: hub})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(orch.Wait)

	s, err := NewServer(StartOpts{DB: db, Orchestrator: orch, Hub: hub})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testEnv{db: db, hub: hub, orch: orch, router: s.Router()}
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var r response
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, r
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
	return v
}

func TestNewServer_Required(t *testing.T) {
	if _, err := NewServer(StartOpts{}); err == nil || !strings.Contains(err.Error(), "db is required") {
		t.Errorf("NewServer() error = %v, want db is required", err)
	}
	env := newTestEnv(t)
	if _, err := NewServer(StartOpts{DB: env.db}); err == nil || !strings.Contains(err.Error(), "orchestrator is required") {
		t.Errorf("NewServer() error = %v, want orchestrator is required", err)
	}
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	if err == nil || !strings.Contains(err.Error(), "db is required") {
		t.Errorf("Start() error = %v, want db is required", err)
	}
}

func TestServe_WaitsForInFlightRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	var finished atomic.Bool
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, srv, ln) }()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
	if !finished.Load() {
		t.Error("serve returned before the in-flight request finished")
	}
}

func TestServe_ListenerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err = serve(ctx, &http.Server{}, ln)
	if err == nil || !strings.Contains(err.Error(), "api:") {
		t.Errorf("serve() error = %v, want api error", err)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("status", "bad"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("wrapped: %w", models.NewValidationError("x", "y")), http.StatusBadRequest},
		{"not found", fmt.Errorf("wrapped: %w", models.ErrNotFound), http.StatusNotFound},
		{"other", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := mapError(tt.err); got != tt.want {
				t.Errorf("mapError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	code, r := env.do(t, http.MethodGet, "/health", nil)
	if code != http.StatusOK || !r.Success {
		t.Errorf("GET /health = %d success=%v, want 200 true", code, r.Success)
	}
}

func TestChatLifecycle(t *testing.T) {
	env := newTestEnv(t)

	code, r := env.do(t, http.MethodPost, "/api/v1/chats", map[string]any{
		"userId": 7, "senderType": "user", "senderId": 7, "content": "I need help",
	})
	if code != http.StatusCreated || !r.Success {
		t.Fatalf("create = %d %s, want 201", code, r.Message)
	}
	created := decode[models.Chat](t, r.Data)
	if created.Status != models.StatusPendingAdminResponse {
		t.Errorf("created status = %q, want %q", created.Status, models.StatusPendingAdminResponse)
	}
	base := fmt.Sprintf("/api/v1/chats/%d", created.ID)

	code, r = env.do(t, http.MethodPost, base+"/messages", map[string]any{
		"senderType": "admin", "senderId": 1, "content": "How can I help?",
	})
	if code != http.StatusCreated {
		t.Fatalf("admin send = %d %s, want 201", code, r.Message)
	}

	code, r = env.do(t, http.MethodGet, base, nil)
	if code != http.StatusOK {
		t.Fatalf("get = %d, want 200", code)
	}
	detail := decode[struct {
		Status       models.ChatStatus `json:"status"`
		Counterparty struct {
			Username string `json:"username"`
		} `json:"counterparty"`
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}](t, r.Data)
	if detail.Status != models.StatusPendingUserResponse {
		t.Errorf("status after admin reply = %q, want %q", detail.Status, models.StatusPendingUserResponse)
	}
	if detail.Counterparty.Username != "lucky7" {
		t.Errorf("counterparty username = %q, want %q", detail.Counterparty.Username, "lucky7")
	}
	if len(detail.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(detail.Messages))
	}

	code, r = env.do(t, http.MethodGet, base+"/unread?senderType=user", nil)
	if code != http.StatusOK {
		t.Fatalf("chat unread = %d %s, want 200", code, r.Message)
	}
	if got := decode[struct{ Unread int64 }](t, r.Data); got.Unread != 1 {
		t.Errorf("unread user messages = %d, want 1", got.Unread)
	}

	code, r = env.do(t, http.MethodPost, base+"/read", map[string]any{"senderType": "user"})
	if code != http.StatusOK {
		t.Fatalf("mark read = %d %s", code, r.Message)
	}
	if got := decode[struct{ Updated int64 }](t, r.Data); got.Updated != 1 {
		t.Errorf("marked = %d, want 1", got.Updated)
	}

	code, _ = env.do(t, http.MethodPatch, base+"/status", map[string]any{"status": "closed"})
	if code != http.StatusOK {
		t.Errorf("update status = %d, want 200", code)
	}
	code, r = env.do(t, http.MethodPatch, base+"/operator", map[string]any{"operatorId": 3})
	if code != http.StatusOK {
		t.Fatalf("assign = %d %s", code, r.Message)
	}
	if got := decode[models.Chat](t, r.Data); got.Status != models.StatusClosed || got.OperatorID == nil || *got.OperatorID != 3 {
		t.Errorf("after assign = %+v, want closed with operator 3", got)
	}

	code, _ = env.do(t, http.MethodDelete, base, nil)
	if code != http.StatusOK {
		t.Errorf("delete = %d, want 200", code)
	}
	code, r = env.do(t, http.MethodGet, base, nil)
	if code != http.StatusNotFound || r.Success {
		t.Errorf("get after delete = %d success=%v, want 404 false", code, r.Success)
	}
}

func TestAutoReplyOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, r := env.do(t, http.MethodPost, "/api/v1/chats", map[string]any{"guestId": "g-42"})
	c := decode[models.Chat](t, r.Data)

	code, _ := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d/messages", c.ID), map[string]any{
		"senderType": "guest", "guestSenderId": "g-42", "content": "hours",
	})
	if code != http.StatusCreated {
		t.Fatalf("send = %d, want 201", code)
	}

	_, r = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d/messages", c.ID), nil)
	msgs := decode[[]models.Message](t, r.Data)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[1].SenderType != models.SenderSystem || msgs[1].Content != "We are open 24/7." {
		t.Errorf("auto-reply = %+v, want system reply", msgs[1])
	}
}

func TestValidationAndNotFound(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"no counterparty", http.MethodPost, "/api/v1/chats", map[string]any{}, http.StatusBadRequest},
		{"two counterparties", http.MethodPost, "/api/v1/chats", map[string]any{"userId": 7, "guestId": "g"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/chats", "{", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/v1/chats/abc", nil, http.StatusBadRequest},
		{"missing chat", http.MethodGet, "/api/v1/chats/999", nil, http.StatusNotFound},
		{"send to missing chat", http.MethodPost, "/api/v1/chats/999/messages", map[string]any{"senderType": "user", "senderId": 7, "content": "hi"}, http.StatusNotFound},
		{"bad sender type", http.MethodPost, "/api/v1/chats/999/messages", map[string]any{"senderType": "bot", "content": "hi"}, http.StatusBadRequest},
		{"bad status", http.MethodPatch, "/api/v1/chats/999/status", map[string]any{"status": "archived"}, http.StatusBadRequest},
		{"bad class", http.MethodGet, "/api/v1/chats?class=vip", nil, http.StatusBadRequest},
		{"messages of missing chat", http.MethodGet, "/api/v1/chats/999/messages", nil, http.StatusNotFound},
		{"bad sender query", http.MethodGet, "/api/v1/messages/sender?type=user&id=x", nil, http.StatusBadRequest},
		{"bad counterparty kind", http.MethodGet, "/api/v1/messages/counterparty?kind=vip&id=1", nil, http.StatusBadRequest},
		{"missing auto-reply", http.MethodGet, "/api/v1/auto-replies/999", nil, http.StatusNotFound},
		{"duplicate keyword", http.MethodPost, "/api/v1/auto-replies", map[string]any{"keyword": "hours", "replyMessage": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, r := env.do(t, tt.method, tt.path, tt.body)
			if code != tt.want {
				t.Errorf("%s %s = %d (%s), want %d", tt.method, tt.path, code, r.Message, tt.want)
			}
			if r.Success {
				t.Error("success = true on error response")
			}
		})
	}
}

func TestListEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/chats", map[string]any{"userId": 7, "senderType": "user", "senderId": 7, "content": "deposit missing"})
	env.do(t, http.MethodPost, "/api/v1/chats", map[string]any{"guestId": "g-1", "senderType": "guest", "guestSenderId": "g-1", "content": "hello"})
	env.do(t, http.MethodPost, "/api/v1/chats", map[string]any{"affiliateId": 3, "operatorId": 1})

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/chats", 3},
		{"/api/v1/chats?class=guest", 1},
		{"/api/v1/chats?search=deposit", 1},
		{"/api/v1/users/7/chats", 1},
		{"/api/v1/guests/g-1/chats", 1},
		{"/api/v1/affiliates/3/chats", 1},
		{"/api/v1/operators/1/chats", 1},
		{"/api/v1/messages/sender?type=user&id=7", 1},
		{"/api/v1/messages/sender?type=guest&id=g-1", 1},
		{"/api/v1/messages/sender?type=system", 0},
		{"/api/v1/messages/counterparty?kind=guest&id=g-1", 1},
		{"/api/v1/messages/counterparty?kind=user&id=7", 1},
		{"/api/v1/messages/counterparty?kind=admin&id=3", 0},
		{"/api/v1/auto-replies", 1},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, r := env.do(t, http.MethodGet, tt.path, nil)
			if code != http.StatusOK {
				t.Fatalf("GET %s = %d (%s), want 200", tt.path, code, r.Message)
			}
			if got := len(decode[[]json.RawMessage](t, r.Data)); got != tt.want {
				t.Errorf("GET %s returned %d items, want %d", tt.path, got, tt.want)
			}
		})
	}
}

func TestAutoReplyCRUD(t *testing.T) {
	env := newTestEnv(t)
	code, r := env.do(t, http.MethodPost, "/api/v1/auto-replies", map[string]any{"keyword": "bonus", "replyMessage": "See promotions."})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %s", code, r.Message)
	}
	ar := decode[models.AutoReply](t, r.Data)
	if !ar.IsActive {
		t.Error("IsActive = false, want default true")
	}
	path := fmt.Sprintf("/api/v1/auto-replies/%d", ar.ID)

	code, r = env.do(t, http.MethodPatch, path, map[string]any{"isActive": false, "replyMessage": "Check the promotions page."})
	if code != http.StatusOK {
		t.Fatalf("update = %d %s", code, r.Message)
	}
	if got := decode[models.AutoReply](t, r.Data); got.IsActive || got.ReplyMessage != "Check the promotions page." {
		t.Errorf("after update = %+v", got)
	}

	if code, _ = env.do(t, http.MethodDelete, path, nil); code != http.StatusOK {
		t.Errorf("delete = %d, want 200", code)
	}
	if code, _ = env.do(t, http.MethodDelete, path, nil); code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", code)
	}
}

func TestUnreadEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/chats", map[string]any{"userId": 7, "senderType": "user", "senderId": 7, "content": "help"})
	env.do(t, http.MethodPost, "/api/v1/chats", map[string]any{"guestId": "g-1", "senderType": "admin", "senderId": 1, "content": "hello?"})

	tests := []struct {
		query   string
		want    unread.Counts
		success bool
	}{
		{"?operatorId=1", unread.Counts{CountUser: 1}, true},
		{"?guestId=g-1", unread.Counts{CountGuest: 1}, true},
		{"?userId=7", unread.Counts{}, true},
	}
	for _, tt := range tests {
		code, r := env.do(t, http.MethodGet, "/api/v1/unread"+tt.query, nil)
		if code != http.StatusOK || r.Success != tt.success {
			t.Errorf("GET unread%s = %d success=%v", tt.query, code, r.Success)
		}
		if got := decode[unread.Counts](t, r.Data); got != tt.want {
			t.Errorf("GET unread%s = %+v, want %+v", tt.query, got, tt.want)
		}
	}

	code, r := env.do(t, http.MethodGet, "/api/v1/unread?userId=7&guestId=g-1", nil)
	if code != http.StatusOK || r.Success {
		t.Errorf("ambiguous actor = %d success=%v, want 200 success=false", code, r.Success)
	}
	if got := decode[unread.Counts](t, r.Data); got.Error == "" || got.CountUser != 0 {
		t.Errorf("ambiguous actor counts = %+v, want zeros with error", got)
	}

	sqlDB, _ := env.db.DB()
	sqlDB.Close()
	code, r = env.do(t, http.MethodGet, "/api/v1/unread?operatorId=1", nil)
	if code != http.StatusOK || r.Success {
		t.Errorf("unread on closed db = %d success=%v, want 200 success=false", code, r.Success)
	}
	if got := decode[unread.Counts](t, r.Data); got.Error == "" {
		t.Errorf("unread on closed db = %+v, want error marker", got)
	}
}

func TestWebsocketReceivesMessages(t *testing.T) {
	env := newTestEnv(t)
	_, r := env.do(t, http.MethodPost, "/api/v1/chats", map[string]any{"userId": 7})
	c := decode[models.Chat](t, r.Data)

	srv := httptest.NewServer(env.router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/ws?chatId=%d", c.ID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Members(c.ID) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d/messages", c.ID), map[string]any{
		"senderType": "user", "senderId": 7, "content": "hours",
	})

	var contents []string
	for i := 0; i < 2; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var f struct {
			Event string `json:"event"`
			Data  struct {
				Content string `json:"content"`
			} `json:"data"`
		}
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if f.Event != orchestrator.EventSendMessage {
			t.Errorf("Event = %q, want %q", f.Event, orchestrator.EventSendMessage)
		}
		contents = append(contents, f.Data.Content)
	}
	if contents[0] != "hours" || contents[1] != "We are open 24/7." {
		t.Errorf("frames = %v, want inbound then auto-reply", contents)
	}
}

func TestWebsocketUnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/ws?chatId=999", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /ws?chatId=999 = %d, want 404", w.Code)
	}
}
