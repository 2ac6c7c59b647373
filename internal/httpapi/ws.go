package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cuemby/energyplan-orchestrator/internal/app"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
	"github.com/cuemby/energyplan-orchestrator/internal/progressbus"
)

// upgrader matches the gorilla/websocket.Upgrader configuration used for
// server-pushed streams elsewhere in the retrieval pack
// (AMD-AGI-Primus-SaFE/Lens ai-advisor's tensorboard stream handler);
// CheckOrigin is permissive since this surface is not browser-facing
// cross-origin in its deployment model.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// wsMessage is a client-to-server control message: join or leave a room.
type wsMessage struct {
	Op   string `json:"op"`
	Room string `json:"room"`
}

// wsEnvelope is one server-to-client event, matching the wire shape
// spec.md §6 names: {room, type, payload, ts}.
type wsEnvelope struct {
	Room    string      `json:"room"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Ts      string      `json:"ts"`
}

// roomEvent pairs a published Event with the room it arrived on, since
// progressbus.Event itself carries a job id but not the room name.
type roomEvent struct {
	room string
	ev   progressbus.Event
}

// RealtimeHandler upgrades connections to the room-subscription
// WebSocket transport described in spec.md §6. One goroutine reads
// client control messages (join/leave); a second drains every
// subscribed room's queue into the connection, serializing all writes
// since gorilla/websocket forbids concurrent writers on one connection.
type RealtimeHandler struct {
	app *app.App
}

func NewRealtimeHandler(a *app.App) *RealtimeHandler {
	return &RealtimeHandler{app: a}
}

func (h *RealtimeHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.WithComponent("httpapi").Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	session := progressbus.SessionID(uuid.NewString())
	defer h.app.Bus.CloseSession(session)

	fanIn := make(chan roomEvent, 256)
	done := make(chan struct{})
	defer close(done)
	joined := make(map[string]bool)

	go writeLoop(conn, fanIn, done)

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Op {
		case "join":
			if joined[msg.Room] {
				continue
			}
			joined[msg.Room] = true
			q := h.app.Bus.Join(session, msg.Room)
			go relay(q, msg.Room, fanIn, done)
		case "leave":
			delete(joined, msg.Room)
			h.app.Bus.Leave(session, msg.Room)
		}
	}
}

// relay copies events from one room's queue into the connection's shared
// fan-in channel until the queue closes (Leave/CloseSession) or the
// connection's read loop exits.
func relay(q *progressbus.Queue, room string, fanIn chan<- roomEvent, done <-chan struct{}) {
	for {
		select {
		case ev, ok := <-q.C():
			if !ok {
				return
			}
			select {
			case fanIn <- roomEvent{room: room, ev: ev}:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

// writeLoop is the connection's sole writer, serializing every room's
// events onto the wire in the order they arrive on fanIn.
func writeLoop(conn *websocket.Conn, fanIn <-chan roomEvent, done <-chan struct{}) {
	for {
		select {
		case re := <-fanIn:
			env := wsEnvelope{
				Room:    re.room,
				Type:    string(re.ev.Type),
				Payload: re.ev.Payload,
				Ts:      re.ev.Timestamp.Format(tsLayout),
			}
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
