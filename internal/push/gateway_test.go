package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpoGatewaySendOK(t *testing.T) {
	var got expoRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"ok","id":"receipt-1"}}`))
	}))
	defer server.Close()

	gateway := NewExpoGateway(server.URL, 2*time.Second)
	err := gateway.Send(context.Background(), "ExponentPushToken[abc]", Notification{
		Title: "New message",
		Body:  "hello",
		Data:  map[string]string{"type": "chat"},
	})

	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[abc]", got.To)
	assert.Equal(t, "default", got.Sound)
	assert.Equal(t, "chat", got.Data["type"])
}

func TestExpoGatewayRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":"error","message":"DeviceNotRegistered"}}`))
	}))
	defer server.Close()

	gateway := NewExpoGateway(server.URL, 2*time.Second)
	err := gateway.Send(context.Background(), "ExponentPushToken[gone]", Notification{Title: "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DeviceNotRegistered")
}

func TestExpoGatewayServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gateway := NewExpoGateway(server.URL, 2*time.Second)
	err := gateway.Send(context.Background(), "ExponentPushToken[abc]", Notification{Title: "hi"})

	require.Error(t, err)
}
