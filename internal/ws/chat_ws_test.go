package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wardrobe-chat-service/internal/mocks"
	"wardrobe-chat-service/internal/models"
	"wardrobe-chat-service/internal/push"
	"wardrobe-chat-service/internal/rooms"
)

const testSecret = "ws-test-secret"

func signToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func dial(t *testing.T, serverURL, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/chat?token=" + signToken(t, userID)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.ServerEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var event models.ServerEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func waitForRoom(t *testing.T, hub *Hub, roomKey string, size int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for hub.RoomSize(roomKey) != size {
		if time.Now().After(deadline) {
			t.Fatalf("room %s never reached size %d", roomKey, size)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func setupSocketServer(t *testing.T, messages *mocks.MessageRepositoryMock, users *mocks.UserRepositoryMock, notifier *mocks.DispatcherMock) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	handler := NewChatSocketHandler(hub, messages, users, notifier, nil, testSecret)
	r := gin.New()
	r.GET("/ws/chat", handler.Handle)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return hub, server
}

func TestSocketRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewChatSocketHandler(NewHub(), new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.DispatcherMock), nil, testSecret)
	r := gin.New()
	r.GET("/ws/chat", handler.Handle)
	server := httptest.NewServer(r)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat?token=not-a-jwt"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 401, resp.StatusCode)
}

func TestTypingRelayedToPeerOnly(t *testing.T) {
	hub, server := setupSocketServer(t, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.DispatcherMock))

	alice := dial(t, server.URL, "alice")
	defer alice.Close()
	bob := dial(t, server.URL, "bob")
	defer bob.Close()

	require.NoError(t, alice.WriteJSON(models.ClientEvent{Type: models.EventJoinChat, TargetUserID: "bob"}))
	require.NoError(t, bob.WriteJSON(models.ClientEvent{Type: models.EventJoinChat, TargetUserID: "alice"}))
	waitForRoom(t, hub, rooms.Key("alice", "bob"), 2)

	require.NoError(t, alice.WriteJSON(models.ClientEvent{Type: models.EventTyping, TargetUserID: "bob", IsTyping: true}))

	event := readEvent(t, bob)
	require.Equal(t, models.EventUserTyping, event.Type)
	require.Equal(t, "alice", event.UserID)
	require.True(t, event.IsTyping)
}

func TestPrivateMessagePersistsThenRelays(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifier := new(mocks.DispatcherMock)
	hub, server := setupSocketServer(t, messages, users, notifier)

	users.On("Exists", mock.Anything, "bob").Return(true, nil).Once()
	messages.On("Append", mock.Anything, "alice", "bob", "Is this still available?", (*models.ProductRef)(nil)).
		Return(models.Message{ID: 11, SenderID: "alice", ReceiverID: "bob", Body: "Is this still available?"}, nil).Once()
	users.On("Usernames", mock.Anything, []string{"alice"}).Return(map[string]string{"alice": "alice"}, nil).Maybe()
	notifier.On("Notify", mock.Anything, "bob", mock.Anything).Return(push.Receipt{}).Maybe()

	alice := dial(t, server.URL, "alice")
	defer alice.Close()
	bob := dial(t, server.URL, "bob")
	defer bob.Close()

	require.NoError(t, alice.WriteJSON(models.ClientEvent{Type: models.EventJoinChat, TargetUserID: "bob"}))
	require.NoError(t, bob.WriteJSON(models.ClientEvent{Type: models.EventJoinChat, TargetUserID: "alice"}))
	waitForRoom(t, hub, rooms.Key("alice", "bob"), 2)

	require.NoError(t, alice.WriteJSON(models.ClientEvent{
		Type:     models.EventPrivateMessage,
		ToUserID: "bob",
		Message:  "Is this still available?",
	}))

	received := readEvent(t, bob)
	require.Equal(t, models.EventNewMessage, received.Type)
	require.NotNil(t, received.Message)
	require.Equal(t, int64(11), received.Message.ID)

	ack := readEvent(t, alice)
	require.Equal(t, models.EventMessageSent, ack.Type)

	messages.AssertExpectations(t)
}

func TestOwnMessageNotEchoedToSenderDevices(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifier := new(mocks.DispatcherMock)
	hub, server := setupSocketServer(t, messages, users, notifier)

	users.On("Exists", mock.Anything, "bob").Return(true, nil).Once()
	messages.On("Append", mock.Anything, "alice", "bob", "ping", (*models.ProductRef)(nil)).
		Return(models.Message{ID: 21, SenderID: "alice", ReceiverID: "bob", Body: "ping"}, nil).Once()
	users.On("Usernames", mock.Anything, []string{"alice"}).Return(map[string]string{"alice": "alice"}, nil).Maybe()
	notifier.On("Notify", mock.Anything, "bob", mock.Anything).Return(push.Receipt{}).Maybe()

	alice := dial(t, server.URL, "alice")
	defer alice.Close()
	alicePhone := dial(t, server.URL, "alice")
	defer alicePhone.Close()
	bob := dial(t, server.URL, "bob")
	defer bob.Close()

	for _, conn := range []*websocket.Conn{alice, alicePhone} {
		require.NoError(t, conn.WriteJSON(models.ClientEvent{Type: models.EventJoinChat, TargetUserID: "bob"}))
	}
	require.NoError(t, bob.WriteJSON(models.ClientEvent{Type: models.EventJoinChat, TargetUserID: "alice"}))
	waitForRoom(t, hub, rooms.Key("alice", "bob"), 3)

	require.NoError(t, alice.WriteJSON(models.ClientEvent{
		Type:     models.EventPrivateMessage,
		ToUserID: "bob",
		Message:  "ping",
	}))

	received := readEvent(t, bob)
	require.Equal(t, models.EventNewMessage, received.Type)

	ack := readEvent(t, alice)
	require.Equal(t, models.EventMessageSent, ack.Type)

	// The sender's other device stays quiet; only the ack connection hears back.
	require.NoError(t, alicePhone.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := alicePhone.ReadMessage()
	require.Error(t, err)

	messages.AssertExpectations(t)
}

func TestPrivateMessageSenderMismatch(t *testing.T) {
	_, server := setupSocketServer(t, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.DispatcherMock))

	alice := dial(t, server.URL, "alice")
	defer alice.Close()

	require.NoError(t, alice.WriteJSON(models.ClientEvent{
		Type:       models.EventPrivateMessage,
		FromUserID: "mallory",
		ToUserID:   "bob",
		Message:    "spoofed",
	}))

	event := readEvent(t, alice)
	require.Equal(t, models.EventMessageError, event.Type)
}
