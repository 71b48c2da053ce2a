package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs runs a chat connection until the peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, userID string, chat ChatFunc) {
	client := newClient(hub, conn, userID, chat)
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
