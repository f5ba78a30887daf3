// Package websocket implements the realtime chat hub. A single goroutine
// owns all room state and processes commands from a channel; per-connection
// writer goroutines decouple slow clients from the broadcast path.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ct-rrya/study-buddy/internal/metrics"
)

const maxClientsPerRoom = 50

// UserRoom is the personal notification room every authenticated socket joins.
func UserRoom(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// ChatRoom names the shared room for a pair of users, invariant to argument
// order so both sides land in the same room.
func ChatRoom(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("chat_%d_%d", a, b)
}

// Event is the envelope sent to clients.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) hubCmd() {}

type registerCmd struct {
	baseHubCmd
	conn   *websocket.Conn
	userID int64
	errCh  chan error
}

type unregisterCmd struct {
	baseHubCmd
	conn *websocket.Conn
}

type joinCmd struct {
	baseHubCmd
	room string
	conn *websocket.Conn
}

type leaveCmd struct {
	baseHubCmd
	room string
	conn *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	room    string
	data    []byte
	exclude *websocket.Conn
}

type clientCountCmd struct {
	baseHubCmd
	room    string
	replyCh chan int
}

type stopCmd struct {
	baseHubCmd
}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

type client struct {
	writer *clientWriter
	userID int64
	rooms  map[string]struct{}
}

// Hub routes chat events between connected clients.
type Hub struct {
	cmdCh   chan hubCmd
	clients map[*websocket.Conn]*client
	rooms   map[string]map[*websocket.Conn]*client
}

func NewHub() *Hub {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		clients: make(map[*websocket.Conn]*client),
		rooms:   make(map[string]map[*websocket.Conn]*client),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.conn)
		case joinCmd:
			h.handleJoin(c)
		case leaveCmd:
			h.handleLeave(c.room, c.conn)
		case broadcastCmd:
			h.handleBroadcast(c)
		case clientCountCmd:
			c.replyCh <- len(h.rooms[c.room])
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("hub: unknown command", "type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	cl := &client{
		writer: newClientWriter(c.conn),
		userID: c.userID,
		rooms:  make(map[string]struct{}),
	}
	h.clients[c.conn] = cl
	h.joinRoom(UserRoom(c.userID), c.conn, cl)
	metrics.WSConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("client connected", "user_id", c.userID, "total", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cl, exists := h.clients[conn]
	if !exists {
		return
	}

	for room := range cl.rooms {
		h.leaveRoom(room, conn)
	}
	cl.writer.stop()
	delete(h.clients, conn)
	metrics.WSConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("client disconnected", "user_id", cl.userID, "total", len(h.clients))
}

func (h *Hub) handleJoin(c joinCmd) {
	cl, exists := h.clients[c.conn]
	if !exists {
		return
	}
	if members := h.rooms[c.room]; len(members) >= maxClientsPerRoom {
		slog.Warn("rejecting join: room full", "room", c.room, "max", maxClientsPerRoom)
		return
	}
	h.joinRoom(c.room, c.conn, cl)
}

func (h *Hub) joinRoom(room string, conn *websocket.Conn, cl *client) {
	members, exists := h.rooms[room]
	if !exists {
		members = make(map[*websocket.Conn]*client)
		h.rooms[room] = members
	}
	members[conn] = cl
	cl.rooms[room] = struct{}{}
}

func (h *Hub) handleLeave(room string, conn *websocket.Conn) {
	if cl, exists := h.clients[conn]; exists {
		delete(cl.rooms, room)
	}
	h.leaveRoom(room, conn)
}

func (h *Hub) leaveRoom(room string, conn *websocket.Conn) {
	members, exists := h.rooms[room]
	if !exists {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	members, exists := h.rooms[c.room]
	if !exists {
		return
	}

	var slow []*websocket.Conn
	for conn, cl := range members {
		if conn == c.exclude {
			continue
		}
		select {
		case cl.writer.sendCh <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("disconnecting slow client", "room", c.room)
		h.handleUnregister(conn)
	}
}

func (h *Hub) handleStop() {
	for conn, cl := range h.clients {
		cl.writer.stop()
		delete(h.clients, conn)
	}
	for room := range h.rooms {
		delete(h.rooms, room)
	}
	metrics.WSConnectedClients.Set(0)
}

// --- Public API ---

// Register adds a connection for a user and joins their personal room.
func (h *Hub) Register(conn *websocket.Conn, userID int64) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{conn: conn, userID: userID, errCh: errCh}
	return <-errCh
}

// Unregister removes a connection from all rooms and stops its writer.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{conn: conn}
}

// Join adds a connection to a chat room.
func (h *Hub) Join(room string, conn *websocket.Conn) {
	h.cmdCh <- joinCmd{room: room, conn: conn}
}

// Leave removes a connection from a chat room.
func (h *Hub) Leave(room string, conn *websocket.Conn) {
	h.cmdCh <- leaveCmd{room: room, conn: conn}
}

// Broadcast sends an event to every member of a room.
func (h *Hub) Broadcast(room, event string, data any) {
	h.broadcast(room, event, data, nil)
}

// BroadcastExcept sends an event to a room, skipping one connection. Used
// for typing indicators, which the typist doesn't need echoed back.
func (h *Hub) BroadcastExcept(room, event string, data any, exclude *websocket.Conn) {
	h.broadcast(room, event, data, exclude)
}

func (h *Hub) broadcast(room, event string, data any, exclude *websocket.Conn) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		slog.Error("failed to marshal event", "event", event, "error", err)
		return
	}
	metrics.WSMessagesTotal.WithLabelValues(event).Inc()
	h.cmdCh <- broadcastCmd{room: room, data: payload, exclude: exclude}
}

// NotifyUser sends an event to a user's personal room.
func (h *Hub) NotifyUser(userID int64, event string, data any) {
	h.Broadcast(UserRoom(userID), event, data)
}

// ClientCount returns the number of connections in a room.
func (h *Hub) ClientCount(room string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{room: room, replyCh: replyCh}
	return <-replyCh
}

// Stop shuts down the hub and closes all connections.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}
}
