package ws

import (
	"testing"

	"wardrobe-chat-service/internal/rooms"
)

func TestHubJoinAndLeave(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil, ConnInfo{UserID: "alice"})

	room := rooms.Key("alice", "bob")
	hub.Join(room, client)
	if hub.RoomSize(room) != 1 {
		t.Fatalf("expected room to have one member")
	}

	hub.Leave(client)
	if hub.RoomSize(room) != 0 {
		t.Fatalf("expected room to be removed")
	}
}

func TestHubLeaveDropsAllRooms(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil, ConnInfo{UserID: "alice"})

	roomBob := rooms.Key("alice", "bob")
	roomCarol := rooms.Key("alice", "carol")
	hub.Join(roomBob, client)
	hub.Join(roomCarol, client)

	hub.Leave(client)
	if hub.RoomSize(roomBob) != 0 || hub.RoomSize(roomCarol) != 0 {
		t.Fatalf("expected disconnect to drop every subscription")
	}
}

func TestHubRoomKeyConvergence(t *testing.T) {
	hub := NewHub()
	alice := NewClient(nil, ConnInfo{UserID: "alice"})
	bob := NewClient(nil, ConnInfo{UserID: "bob"})

	// Each side computes the room from its own perspective.
	hub.Join(rooms.Key("alice", "bob"), alice)
	hub.Join(rooms.Key("bob", "alice"), bob)

	if hub.RoomSize(rooms.Key("alice", "bob")) != 2 {
		t.Fatalf("expected both peers in the same room")
	}
}
