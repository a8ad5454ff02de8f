package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/immolife/internal/domain/game"
	"github.com/MRamiBalles/immolife/internal/domain/property"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Command types accepted from clients.
const (
	CmdGetState             = "getState"
	CmdSearchListings       = "searchListings"
	CmdBuyProperty          = "buyProperty"
	CmdSellProperty         = "sellProperty"
	CmdFindTenant           = "findTenant"
	CmdRentToTenant         = "rentToTenant"
	CmdApplyForLoan         = "applyForLoan"
	CmdGetRenovationOptions = "getRenovationOptions"
	CmdRenovateProperty     = "renovateProperty"
	CmdSetTimeSpeed         = "setTimeSpeed"
	CmdTogglePause          = "togglePause"
	CmdForceAdvanceMonth    = "forceAdvanceToNextMonth"
	CmdNewGame              = "startNewGame"
	CmdSaveGame             = "saveGame"
	CmdLoadGame             = "loadGame"
	CmdQuickSave            = "quickSave"
	CmdGetSaveSlots         = "getSaveSlots"
	CmdDeleteSave           = "deleteSave"
)

var errUnknownCommand = errors.New("unknown command")

// Command is an incoming request from the frontend.
type Command struct {
	ID      string          `json:"id"` // echoed in the result
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// commandArgs is the union of every command's arguments.
type commandArgs struct {
	PropertyID   string           `json:"propertyId"`
	Tenant       *property.Tenant `json:"tenant"`
	BankID       string           `json:"bankId"`
	Amount       int64            `json:"amount"`
	RenovationID string           `json:"renovationId"`
	Speed        any              `json:"speed"` // name or multiplier
	SlotName     string           `json:"slotName"`
	Query        string           `json:"query"`
}

// Result answers one Command.
type Result struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Client is a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string

	// closed is set by the hub when send is closed. Guarded by hub.mu.
	closed bool
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.clientBuffer),
		remote: conn.RemoteAddr().String(),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
	}
}

func (c *Client) unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// sendMessage queues m for this client only. Messages to a closed or saturated client are dropped.
func (c *Client) sendMessage(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		c.hub.logger.Error("Failed to serialize message", "type", m.Type, "error", err)
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
		c.hub.metrics.RecordWSMessage(false)
	default:
		c.hub.metrics.RecordWSError()
	}
}

// ReadPump pumps commands from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.unregister()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("WebSocket read failed", "remote", c.remote, "error", err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Warn("Failed to parse command", "remote", c.remote, "error", err)
			c.sendMessage(Message{Type: MsgTypeResult, At: time.Now(), Payload: Result{Error: "malformed command"}})
			continue
		}

		c.sendMessage(Message{Type: MsgTypeResult, At: time.Now(), Payload: c.hub.execute(cmd)})
	}
}

// execute runs one command against the engine.
func (h *Hub) execute(cmd Command) Result {
	res := Result{ID: cmd.ID, Command: cmd.Type}

	var args commandArgs
	if len(cmd.Payload) > 0 {
		if err := json.Unmarshal(cmd.Payload, &args); err != nil {
			res.Error = "malformed payload: " + err.Error()
			return res
		}
	}

	data, err := h.dispatch(cmd.Type, args)
	if err != nil {
		h.logger.Debug("Command failed", "command", cmd.Type, "error", err)
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.Data = data
	return res
}

func (h *Hub) dispatch(typ string, a commandArgs) (any, error) {
	g := h.game
	switch typ {
	case CmdGetState:
		return g.State(), nil
	case CmdSearchListings:
		return g.SearchListings(a.Query), nil
	case CmdBuyProperty:
		return nil, g.BuyProperty(a.PropertyID)
	case CmdSellProperty:
		return nil, g.SellProperty(a.PropertyID)
	case CmdFindTenant:
		return g.FindTenant(a.PropertyID)
	case CmdRentToTenant:
		if a.Tenant == nil {
			return nil, errors.New("tenant required")
		}
		return nil, g.RentToTenant(a.PropertyID, *a.Tenant)
	case CmdApplyForLoan:
		return g.ApplyForLoan(a.BankID, a.Amount, a.PropertyID)
	case CmdGetRenovationOptions:
		return g.GetRenovationOptions(a.PropertyID)
	case CmdRenovateProperty:
		return nil, g.RenovateProperty(a.PropertyID, a.RenovationID)
	case CmdSetTimeSpeed:
		speed, err := game.ParseSpeed(fmt.Sprint(a.Speed))
		if err != nil {
			return nil, err
		}
		return nil, g.SetTimeSpeed(speed)
	case CmdTogglePause:
		g.TogglePause()
		return nil, nil
	case CmdForceAdvanceMonth:
		g.ForceAdvanceToNextMonth()
		return nil, nil
	case CmdNewGame:
		g.StartNewGame()
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.ioTimeout)
	defer cancel()
	switch typ {
	case CmdSaveGame:
		return nil, g.SaveGame(ctx, a.SlotName)
	case CmdLoadGame:
		return nil, g.LoadGame(ctx, a.SlotName)
	case CmdQuickSave:
		return g.QuickSave(ctx)
	case CmdGetSaveSlots:
		return g.GetSaveSlots(ctx)
	case CmdDeleteSave:
		return nil, g.DeleteSave(ctx, a.SlotName)
	}
	return nil, fmt.Errorf("%w: %q", errUnknownCommand, typ)
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message; clients parse each frame as a single JSON document.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
