package ws

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"dutchAuction/config"
	"dutchAuction/game"
	"dutchAuction/state"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Bidder is the engine surface the gateway drives.
type Bidder interface {
	Bid(b game.Bid) bool
	Publish()
}

// Participants hands out and reclaims bidder identities.
type Participants interface {
	Acquire(address string) (state.Participant, error)
	Release(name string) bool
}

// Event kinds passed to Gateway.OnChange.
const (
	Connected    = "connected"
	Disconnected = "disconnected"
)

// InitData is sent once per connection, before any snapshot.
type InitData struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	game.Settings
}

// ClientMessage is an inbound message.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client is one connected bidder.
type Client struct {
	Name    string
	Address string
	Conn    *websocket.Conn
	Send    chan []byte
}

// Gateway upgrades connections, assigns bidder identities and relays bids.
type Gateway struct {
	Hub          *Hub
	Engine       Bidder
	Participants Participants
	Settings     game.Settings
	Logger       *zap.Logger
	// OnChange is called after a participant connects or disconnects. Optional.
	OnChange func(event string, p state.Participant)
}

func (g *Gateway) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// ServeHTTP is the websocket endpoint.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := g.logger()
	log.Debug("📥 WebSocket connection attempt", zap.String("remote", r.RemoteAddr))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("❌ WebSocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(config.MaxMessageSize)

	address := remoteIP(r)
	p, err := g.Participants.Acquire(address)
	if errors.Is(err, state.ErrPoolExhausted) {
		log.Warn("🚫 Rejecting connection, no free participant slots", zap.String("address", address))
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "no free participant slots")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(config.WSWriteDeadline))
		conn.Close()
		return
	}
	if err != nil {
		log.Error("❌ Failed to acquire participant", zap.Error(err))
		conn.Close()
		return
	}

	client := &Client{
		Name:    p.Name,
		Address: address,
		Conn:    conn,
		Send:    make(chan []byte, config.WSSendBuffer),
	}

	initMsg, err := json.Marshal(Envelope{
		Type: "init",
		Data: InitData{Name: p.Name, Address: address, Settings: g.Settings},
	})
	if err != nil {
		log.Error("❌ Failed to marshal init", zap.Error(err))
		g.Participants.Release(p.Name)
		conn.Close()
		return
	}
	client.Send <- initMsg

	if !g.Hub.join(client) {
		g.Participants.Release(p.Name)
		conn.Close()
		return
	}

	log.Info("✅ Participant connected", zap.String("name", p.Name), zap.String("address", address))
	if g.OnChange != nil {
		g.OnChange(Connected, p)
	}

	go client.writePump(log)
	g.Engine.Publish()

	client.readPump(g, log)
}

// writePump sends messages from the Send channel to the WebSocket
func (c *Client) writePump(log *zap.Logger) {
	defer c.Conn.Close()

	for message := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Debug("❌ Write error", zap.String("name", c.Name), zap.Error(err))
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// readPump reads bids until the connection drops, then releases the
// participant.
func (c *Client) readPump(g *Gateway, log *zap.Logger) {
	defer func() {
		g.Hub.leave(c)
		c.Conn.Close()

		p := state.Participant{Name: c.Name, Address: c.Address}
		g.Participants.Release(c.Name)
		log.Info("👋 Participant disconnected", zap.String("name", c.Name), zap.String("address", c.Address))
		if g.OnChange != nil {
			g.OnChange(Disconnected, p)
		}
		g.Engine.Publish()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("❌ Read error", zap.String("name", c.Name), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug("❌ Failed to parse message", zap.String("name", c.Name), zap.Error(err))
			continue
		}

		c.handleMessage(g, log, msg)
	}
}

func (c *Client) handleMessage(g *Gateway, log *zap.Logger, msg ClientMessage) {
	switch msg.Type {
	case "bid":
		var bid game.Bid
		if err := json.Unmarshal(msg.Data, &bid); err != nil {
			log.Debug("❌ Malformed bid", zap.String("name", c.Name), zap.Error(err))
			return
		}
		if bid.Name != "" && bid.Name != c.Name {
			log.Warn("⚠️  Bid name does not match connection",
				zap.String("claimed", bid.Name), zap.String("name", c.Name))
		}
		g.Engine.Bid(game.Bid{Name: c.Name, Price: bid.Price})

	default:
		log.Debug("⚠️  Unknown message type", zap.String("name", c.Name), zap.String("type", msg.Type))
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
