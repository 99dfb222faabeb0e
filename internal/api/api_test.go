package api

import (
	"Chatter/internal/api/config"
	"Chatter/internal/api/dto"
	"Chatter/internal/api/handler"
	"Chatter/internal/pkg/security"
	"Chatter/internal/realtime"
	"Chatter/internal/repository/repotest"
	"Chatter/internal/service"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type testEnv struct {
	server *httptest.Server
	users  *repotest.UserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := repotest.NewUserRepo()
	convs := repotest.NewConversationRepo()
	msgs := repotest.NewMessageRepo()

	jwt := security.NewJWTManager(config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		ResetTTL:      time.Hour,
		Issuer:        "Chatter",
	})
	authSvc := service.NewAuthService(users, jwt, repotest.NewBlacklist(), nil, true)
	userSvc := service.NewUserService(users, nil, nil)
	chatSvc := service.NewChatService(convs, msgs, users)
	gateway := realtime.NewGateway(realtime.NewRegistry(), userSvc, chatSvc, config.WSConfig{
		WriteWait:  time.Second,
		PongWait:   10 * time.Second,
		SendBuffer: 32,
	})

	router := SetupRouter(&HandlersGroup{
		AuthHandler:   handler.NewAuthHandler(authSvc, userSvc, 24*time.Hour, false),
		UserHandler:   handler.NewUserHandler(userSvc),
		ChatHandler:   handler.NewChatHandler(chatSvc),
		MediaHandler:  handler.NewMediaHandler(nil),
		WsHandler:     handler.NewWsHandler(authSvc, gateway, ""),
		HealthHandler: handler.NewHealthHandler(nil),
	}, RouterDeps{
		AuthService: authSvc,
		Limiter:     repotest.NewLimiter(),
		RateLimit: config.RateLimitConfig{
			LoginMax:       3,
			LoginWindow:    time.Minute,
			RegisterMax:    20,
			RegisterWindow: time.Minute,
		},
	})

	env := &testEnv{server: httptest.NewServer(router), users: users}
	t.Cleanup(env.server.Close)
	return env
}

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"errorCode"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, e.server.URL+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

type authData struct {
	Token string      `json:"token"`
	User  dto.UserDTO `json:"user"`
}

func (e *testEnv) register(t *testing.T, username string) authData {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Secret123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d %s", username, resp.StatusCode, body.Message)
	}
	var data authData
	_ = json.Unmarshal(body.Data, &data)
	return data
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, _ := json.Marshal(data)
	frame, _ := json.Marshal(realtime.Envelope{Event: event, Data: raw})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// waitFor 丢弃其他事件直到收到目标事件
func waitFor(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		var env realtime.Envelope
		if err = json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("bad frame %q: %v", raw, err)
		}
		if env.Event == event {
			return env.Data
		}
	}
}

func TestRealtimeMessageFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	bobConn := env.dial(t, bob.Token)
	var registered realtime.RegisteredPayload
	_ = json.Unmarshal(waitFor(t, bobConn, realtime.EventRegistered), &registered)
	if registered.ID != bob.User.ID || registered.Email != "bob@example.com" {
		t.Errorf("unexpected registered payload %+v", registered)
	}
	// 上线事件也会发给自己
	var self realtime.UserOnlinePayload
	_ = json.Unmarshal(waitFor(t, bobConn, realtime.EventUserOnline), &self)
	if self.UserID != bob.User.ID {
		t.Errorf("bob expected own online event, got %+v", self)
	}

	aliceConn := env.dial(t, alice.Token)
	waitFor(t, aliceConn, realtime.EventRegistered)

	var online realtime.UserOnlinePayload
	_ = json.Unmarshal(waitFor(t, bobConn, realtime.EventUserOnline), &online)
	if online.UserID != alice.User.ID {
		t.Errorf("bob expected alice online, got %+v", online)
	}

	send(t, aliceConn, realtime.EventSendMessage, map[string]string{"chatType": "global", "text": "hello bob"})

	var received dto.MessageDTO
	_ = json.Unmarshal(waitFor(t, bobConn, realtime.EventReceiveMessage), &received)
	if received.SenderID != alice.User.ID || received.Text != "hello bob" || received.Type != "text" {
		t.Errorf("unexpected message %+v", received)
	}
	if _, err := time.Parse(time.RFC3339, received.Timestamp); err != nil {
		t.Errorf("timestamp not ISO: %q", received.Timestamp)
	}
	// 发送者同样在房间内
	waitFor(t, aliceConn, realtime.EventReceiveMessage)

	resp, body := env.do(t, http.MethodGet, "/api/chat/messages/global", bob.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: status %d", resp.StatusCode)
	}
	var page dto.MessagePageDTO
	_ = json.Unmarshal(body.Data, &page)
	matches := 0
	for _, m := range page.Messages {
		if m.ID == received.ID {
			matches++
		}
	}
	if matches != 1 || page.Pagination.Total != 1 {
		t.Errorf("expected the message exactly once, got %d of %d", matches, page.Pagination.Total)
	}

	send(t, bobConn, realtime.EventMarkChatAsRead, map[string]string{"chatType": "global"})
	var read realtime.MessagesReadPayload
	_ = json.Unmarshal(waitFor(t, aliceConn, realtime.EventMessagesRead), &read)
	if read.Count != 1 || read.UserID != bob.User.ID {
		t.Errorf("unexpected read receipt %+v", read)
	}

	send(t, bobConn, realtime.EventMarkChatAsRead, map[string]string{"chatType": "global", "userId": alice.User.ID})
	var denied realtime.ErrorPayload
	_ = json.Unmarshal(waitFor(t, bobConn, realtime.EventError), &denied)
	if denied.Message != service.UnauthorizedError.Error() {
		t.Errorf("marking for another user: unexpected error payload %+v", denied)
	}

	send(t, bobConn, realtime.EventSendMessage, map[string]string{"text": "no room"})
	var wsErr realtime.ErrorPayload
	_ = json.Unmarshal(waitFor(t, bobConn, realtime.EventError), &wsErr)
	if wsErr.Message != service.ErrChatTypeRequired.Error() {
		t.Errorf("unexpected error payload %+v", wsErr)
	}

	_ = aliceConn.Close()
	var offline realtime.UserOfflinePayload
	_ = json.Unmarshal(waitFor(t, bobConn, realtime.EventUserOffline), &offline)
	if offline.UserID != alice.User.ID {
		t.Errorf("unexpected offline payload %+v", offline)
	}
}

func TestTypingIsRelayedToOthersOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	bobConn := env.dial(t, bob.Token)
	waitFor(t, bobConn, realtime.EventRegistered)
	aliceConn := env.dial(t, alice.Token)
	waitFor(t, aliceConn, realtime.EventRegistered)

	send(t, aliceConn, realtime.EventTyping, map[string]string{"chatType": "group"})
	var typing realtime.UserTypingPayload
	_ = json.Unmarshal(waitFor(t, bobConn, realtime.EventUserTyping), &typing)
	if typing.Username != "alice" || typing.ChatType != "group" {
		t.Errorf("unexpected typing payload %+v", typing)
	}

	send(t, aliceConn, realtime.EventGetOnlineUsers, nil)
	var list []realtime.Presence
	_ = json.Unmarshal(waitFor(t, aliceConn, realtime.EventOnlineUsersList), &list)
	if len(list) != 2 || list[0].Username != "alice" || list[1].Username != "bob" {
		t.Errorf("unexpected online list %+v", list)
	}
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", resp)
	}
}

func TestWebsocketTokenInSubprotocol(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/ws"
	dialer := websocket.Dialer{Subprotocols: []string{"access_token", alice.Token}}
	conn, resp, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	if resp.Header.Get("Sec-WebSocket-Protocol") != "access_token" {
		t.Errorf("subprotocol not negotiated: %q", resp.Header.Get("Sec-WebSocket-Protocol"))
	}
	waitFor(t, conn, realtime.EventRegistered)
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	resp, body := env.do(t, http.MethodGet, "/api/users/profile", "", nil)
	if resp.StatusCode != http.StatusUnauthorized || body.ErrorCode != service.ErrorCodeInvalidToken {
		t.Errorf("expected 401 INVALID_TOKEN, got %d %q", resp.StatusCode, body.ErrorCode)
	}

	resp, body = env.do(t, http.MethodGet, "/api/auth/verify", alice.Token, nil)
	var verify dto.VerifyResultDTO
	_ = json.Unmarshal(body.Data, &verify)
	if resp.StatusCode != http.StatusOK || !verify.Valid || verify.User.Username != "alice" {
		t.Errorf("verify failed: %d %+v", resp.StatusCode, verify)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "x", "email": "x@example.com", "password": "Secret123",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("short username accepted: %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/logout", alice.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/auth/verify", alice.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token accepted: %d", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	creds := map[string]string{"email": "alice@example.com", "password": "Secret123"}
	for i := 0; i < 3; i++ {
		if resp, _ := env.do(t, http.MethodPost, "/api/auth/login", "", creds); resp.StatusCode != http.StatusOK {
			t.Fatalf("login %d: status %d", i, resp.StatusCode)
		}
	}
	resp, body := env.do(t, http.MethodPost, "/api/auth/login", "", creds)
	if resp.StatusCode != http.StatusTooManyRequests || body.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
}

func TestDeleteMessageRequiresSender(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	aliceConn := env.dial(t, alice.Token)
	waitFor(t, aliceConn, realtime.EventRegistered)
	send(t, aliceConn, realtime.EventSendMessage, map[string]string{"chatType": "group", "stickerUrl": "https://s/1.png"})
	var msg dto.MessageDTO
	_ = json.Unmarshal(waitFor(t, aliceConn, realtime.EventReceiveMessage), &msg)
	if msg.Type != "sticker" {
		t.Errorf("expected sticker, got %s", msg.Type)
	}

	resp, _ := env.do(t, http.MethodDelete, "/api/chat/messages/"+msg.ID, bob.Token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-sender delete: expected 403, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/chat/messages/"+msg.ID, alice.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("sender delete: expected 200, got %d", resp.StatusCode)
	}

	_, body := env.do(t, http.MethodGet, "/api/chat/messages/group", alice.Token, nil)
	var page dto.MessagePageDTO
	_ = json.Unmarshal(body.Data, &page)
	if len(page.Messages) != 0 {
		t.Errorf("deleted message still listed: %+v", page.Messages)
	}
}

func TestMediaUploadWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	resp, _ := env.do(t, http.MethodPost, "/api/media/upload", alice.Token, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}
