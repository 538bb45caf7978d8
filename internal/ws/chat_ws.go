package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"wardrobe-chat-service/internal/middleware"
	"wardrobe-chat-service/internal/models"
	"wardrobe-chat-service/internal/observability"
	"wardrobe-chat-service/internal/push"
	"wardrobe-chat-service/internal/ratelimit"
	"wardrobe-chat-service/internal/repositories"
	"wardrobe-chat-service/internal/rooms"
)

// ChatSocketHandler owns the realtime chat endpoint.
type ChatSocketHandler struct {
	hub       *Hub
	messages  repositories.MessageRepository
	users     repositories.UserRepository
	notifier  push.Dispatcher
	limiter   *ratelimit.Limiter
	jwtSecret string
}

// NewChatSocketHandler constructs a ChatSocketHandler.
func NewChatSocketHandler(hub *Hub, messages repositories.MessageRepository, users repositories.UserRepository, notifier push.Dispatcher, limiter *ratelimit.Limiter, jwtSecret string) *ChatSocketHandler {
	return &ChatSocketHandler{
		hub:       hub,
		messages:  messages,
		users:     users,
		notifier:  notifier,
		limiter:   limiter,
		jwtSecret: jwtSecret,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs the client's event loop until it
// disconnects. Disconnect implicitly drops all room subscriptions.
func (h *ChatSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("wardrobe-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token != "" {
		// Strip the scheme; query-token clients send the bare JWT.
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}
	} else {
		token = c.Query("token")
	}

	userID, err := middleware.ValidateToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, "ws_connect", info, "")

	var closeReason string
	defer func() {
		h.hub.Leave(client)
		client.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, "ws_disconnect", info, closeReason)
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, "ws_error", info, closeReason)
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			h.sendError(client, "malformed event")
			continue
		}

		switch event.Type {
		case models.EventJoinChat:
			h.handleJoin(client, userID, event)
		case models.EventPrivateMessage:
			h.handlePrivateMessage(ctx, client, userID, event)
		case models.EventTyping:
			h.handleTyping(client, userID, event)
		default:
			h.sendError(client, "unknown event type")
		}
	}
}

func (h *ChatSocketHandler) handleJoin(client *Client, userID string, event models.ClientEvent) {
	if event.UserID != "" && event.UserID != userID {
		h.sendError(client, "cannot join rooms for another user")
		return
	}
	if event.TargetUserID == "" {
		h.sendError(client, "targetUserId is required")
		return
	}

	h.hub.Join(rooms.Key(userID, event.TargetUserID), client)
	observability.IncWSEvent("join_chat")
}

func (h *ChatSocketHandler) handlePrivateMessage(ctx context.Context, client *Client, userID string, event models.ClientEvent) {
	if event.FromUserID != "" && event.FromUserID != userID {
		h.sendError(client, "sender does not match authenticated user")
		return
	}
	if event.ToUserID == "" || event.Message == "" {
		h.sendError(client, "toUserId and message are required")
		return
	}
	if event.ToUserID == userID {
		h.sendError(client, "cannot message yourself")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(userID) {
		h.sendError(client, "too many messages, slow down")
		return
	}

	exists, err := h.users.Exists(ctx, event.ToUserID)
	if err != nil || !exists {
		h.sendError(client, "unknown receiver")
		return
	}

	var product *models.ProductRef
	if event.ProductID != "" {
		product = &models.ProductRef{ID: event.ProductID, Name: event.ProductName}
	}

	msg, err := h.messages.Append(ctx, userID, event.ToUserID, event.Message, product)
	if err != nil {
		h.sendError(client, "failed to send message")
		return
	}
	observability.IncWSEvent("private_message")

	// Persisted; the broadcast and the push fan-out have no ordering between them.
	h.hub.BroadcastMessage(rooms.Key(userID, event.ToUserID), msg, client)
	go h.notifyReceiver(msg)
}

func (h *ChatSocketHandler) handleTyping(client *Client, userID string, event models.ClientEvent) {
	if event.TargetUserID == "" {
		h.sendError(client, "targetUserId is required")
		return
	}
	h.hub.BroadcastTyping(rooms.Key(userID, event.TargetUserID), userID, event.IsTyping)
	observability.IncWSEvent("typing")
}

// notifyReceiver runs detached from the socket's lifetime so a slow push
// gateway never stalls the event loop.
func (h *ChatSocketHandler) notifyReceiver(msg models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	title := "New message"
	if names, err := h.users.Usernames(ctx, []string{msg.SenderID}); err == nil {
		if name := names[msg.SenderID]; name != "" {
			title = "New message from " + name
		}
	}

	data := map[string]string{"type": "chat", "senderId": msg.SenderID}
	if msg.Product != nil {
		data["productId"] = msg.Product.ID
	}
	h.notifier.Notify(ctx, msg.ReceiverID, push.Notification{
		Title: title,
		Body:  msg.Body,
		Data:  data,
	})
}

func (h *ChatSocketHandler) sendError(client *Client, message string) {
	_ = client.WriteEvent(models.ServerEvent{Type: models.EventMessageError, Error: message})
}

func (h *ChatSocketHandler) publishLifecycle(ctx context.Context, name string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.chats", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
