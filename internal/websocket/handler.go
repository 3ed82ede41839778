package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches c as an observer of sessionID and blocks until it leaves.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, 64)}

	select {
	case hub.register <- client:
	case <-hub.done:
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
