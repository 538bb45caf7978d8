package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wardrobe-chat-service/internal/cache"
	"wardrobe-chat-service/internal/middleware"
	"wardrobe-chat-service/internal/models"
	"wardrobe-chat-service/internal/push"
	"wardrobe-chat-service/internal/repositories"
	"wardrobe-chat-service/internal/rooms"
	"wardrobe-chat-service/internal/telemetry"
	"wardrobe-chat-service/internal/ws"
)

// ChatHandler manages the direct-message REST endpoints.
type ChatHandler struct {
	messages    repositories.MessageRepository
	contexts    repositories.ContextRepository
	users       repositories.UserRepository
	hub         *ws.Hub
	notifier    push.Dispatcher
	cache       cache.Cache
	cachePrefix string
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(messages repositories.MessageRepository, contexts repositories.ContextRepository, users repositories.UserRepository, hub *ws.Hub, notifier push.Dispatcher, store cache.Cache, cachePrefix string, audit *telemetry.AuditEmitter) *ChatHandler {
	if store == nil {
		store = cache.Noop{}
	}
	return &ChatHandler{
		messages:    messages,
		contexts:    contexts,
		users:       users,
		hub:         hub,
		notifier:    notifier,
		cache:       store,
		cachePrefix: cachePrefix,
		audit:       audit,
	}
}

// GetThread returns one page of the thread with the counterpart, plus the
// conversation context when one exists.
func (h *ChatHandler) GetThread(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	counterpartID := c.Param("counterpart_id")
	if counterpartID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterpart id"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before cursor"})
			return
		}
		before = parsed
	}

	// Thread pages come straight from Postgres so an append is visible on the
	// very next read; only the conversation list is cached.
	msgs, err := h.messages.ListThread(c.Request.Context(), userID, counterpartID, limit, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	response := gin.H{"messages": msgs, "context": nil}
	cc, err := h.contexts.Get(c.Request.Context(), userID, counterpartID)
	if err == nil {
		response["context"] = cc
	} else if !errors.Is(err, repositories.ErrContextNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load context"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// SendMessage appends a message and kicks off the realtime broadcast and the
// push fan-out. Both are best-effort; only persistence decides the response.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	var req struct {
		ReceiverID  string `json:"receiver_id" binding:"required"`
		Text        string `json:"text" binding:"required"`
		ProductID   string `json:"product_id"`
		ProductName string `json:"product_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ReceiverID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	exists, err := h.users.Exists(c.Request.Context(), req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify receiver"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
		return
	}

	var product *models.ProductRef
	if req.ProductID != "" {
		product = &models.ProductRef{ID: req.ProductID, Name: req.ProductName}
	}

	msg, err := h.messages.Append(c.Request.Context(), userID, req.ReceiverID, req.Text, product)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	h.invalidateConversations(c.Request.Context(), userID, req.ReceiverID)
	h.emitAudit(c, "INFO", "message sent")

	// Persisted; broadcast and push have no ordering between them.
	h.hub.BroadcastMessage(rooms.Key(userID, req.ReceiverID), msg, nil)
	go h.notifyReceiver(msg)

	c.JSON(http.StatusCreated, msg)
}

// ListConversations returns the caller's conversation summaries, newest first.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	key := cache.ConversationsKey(h.cachePrefix, userID)

	var summaries []models.ConversationSummary
	if err := h.cache.GetJSON(c.Request.Context(), key, &summaries); err != nil {
		summaries, err = h.messages.ListConversations(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
			return
		}
		_ = h.cache.SetJSON(c.Request.Context(), key, summaries)
	}

	counterpartIDs := make([]string, 0, len(summaries))
	for _, s := range summaries {
		counterpartIDs = append(counterpartIDs, s.CounterpartID)
	}
	usernames, err := h.users.Usernames(c.Request.Context(), counterpartIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user info"})
		return
	}

	type conversationResponse struct {
		models.ConversationSummary
		CounterpartUsername string `json:"counterpart_username,omitempty"`
	}
	responses := make([]conversationResponse, 0, len(summaries))
	for _, s := range summaries {
		responses = append(responses, conversationResponse{
			ConversationSummary: s,
			CounterpartUsername: usernames[s.CounterpartID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": responses})
}

// MarkThreadRead flips the unread messages from the counterpart. Idempotent.
func (h *ChatHandler) MarkThreadRead(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	counterpartID := c.Param("counterpart_id")
	if counterpartID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterpart id"})
		return
	}

	updated, err := h.messages.MarkThreadRead(c.Request.Context(), userID, counterpartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark thread read"})
		return
	}

	h.invalidateConversations(c.Request.Context(), userID, counterpartID)
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteThread removes every message between the caller and the counterpart,
// in both directions, along with the pair's conversation context.
func (h *ChatHandler) DeleteThread(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	counterpartID := c.Param("counterpart_id")
	if counterpartID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterpart id"})
		return
	}

	// Context first: if its delete fails we bail before touching messages,
	// so a 500 never means a half-deleted thread.
	if err := h.contexts.DeleteByPair(c.Request.Context(), userID, counterpartID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete conversation"})
		return
	}
	deleted, err := h.messages.DeleteThread(c.Request.Context(), userID, counterpartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete conversation"})
		return
	}

	h.invalidateConversations(c.Request.Context(), userID, counterpartID)
	h.emitAudit(c, "WARN", "conversation deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// UpsertContext records what the conversation is currently about.
func (h *ChatHandler) UpsertContext(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	var req struct {
		TargetUserID string `json:"target_user_id" binding:"required"`
		ProductID    string `json:"product_id"`
		ProductName  string `json:"product_name"`
		ProductImage string `json:"product_image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TargetUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot set context with yourself"})
		return
	}

	var product *models.ProductRef
	if req.ProductID != "" {
		product = &models.ProductRef{ID: req.ProductID, Name: req.ProductName, Image: req.ProductImage}
	}

	cc, err := h.contexts.Upsert(c.Request.Context(), userID, req.TargetUserID, product)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update context"})
		return
	}

	c.JSON(http.StatusOK, cc)
}

// GetContext returns the conversation context for the pair, or null.
func (h *ChatHandler) GetContext(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	counterpartID := c.Param("counterpart_id")
	if counterpartID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterpart id"})
		return
	}

	cc, err := h.contexts.Get(c.Request.Context(), userID, counterpartID)
	if errors.Is(err, repositories.ErrContextNotFound) {
		c.JSON(http.StatusOK, gin.H{"context": nil})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"context": cc})
}

func (h *ChatHandler) invalidateConversations(ctx context.Context, userA, userB string) {
	_ = h.cache.Invalidate(ctx,
		cache.ConversationsKey(h.cachePrefix, userA),
		cache.ConversationsKey(h.cachePrefix, userB),
	)
}

// notifyReceiver runs detached from the request lifetime so a slow push
// gateway never delays the HTTP response.
func (h *ChatHandler) notifyReceiver(msg models.Message) {
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

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
