// Package example is a reference venue.Adapter over a generic JSON/
// WebSocket exchange API. It demonstrates the transport concerns the
// sim adapter deliberately skips: dial, ping/pong keepalive, exponential
// reconnect backoff re-subscribing on every reconnect, and mapping raw
// venue JSON into venue.MarketEvent / core.ExecutionReport. It is
// grounded on the pack's WebSocket client shape (dialer with handshake
// timeout, read/ping goroutines, pong deadline refresh) and is not wired
// to any particular real exchange's wire format.
package example

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"hftcore/internal/book"
	"hftcore/internal/core"
	"hftcore/internal/errors"
	"hftcore/internal/quant"
	"hftcore/internal/venue"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 30 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// depthMessage is the wire shape this adapter expects for book updates:
// a venue-specific JSON envelope, decoded and normalized into a
// venue.MarketEvent before it ever reaches the event loop.
type depthMessage struct {
	Type   string     `json:"type"`
	Symbol string     `json:"symbol"`
	Bids   [][2]string `json:"bids"`
	Asks   [][2]string `json:"asks"`
}

// Adapter is a WebSocket-backed venue.Adapter. It satisfies the
// market-data half of the contract; trading operations are left to a
// REST client (not modeled here — most exchanges split the two
// transports, and this package's purpose is the streaming half).
type Adapter struct {
	venueID quant.VenueID
	wsURL   string
	scale   int

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	subscribed []string

	marketCh chan venue.MarketEvent
	execCh   chan core.ExecutionReport
}

// New returns an adapter that will dial wsURL on Connect. scale is the
// fixed-point scale used to parse price/size strings from the wire.
func New(venueID quant.VenueID, wsURL string, scale int) *Adapter {
	return &Adapter{
		venueID:  venueID,
		wsURL:    wsURL,
		scale:    scale,
		marketCh: make(chan venue.MarketEvent, 1024),
		execCh:   make(chan core.ExecutionReport, 256),
	}
}

// Connect dials the WebSocket endpoint and starts the read and ping
// loops. MarketData/Executions can be called before or after Connect;
// the channels are created up front.
func (a *Adapter) Connect(ctx context.Context, symbols []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return &venue.Error{Class: venue.ClassConnection, Msg: "example: adapter closed"}
	}
	a.subscribed = symbols

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, a.wsURL, nil)
	if err != nil {
		return &venue.Error{Class: venue.ClassConnection, Msg: err.Error()}
	}
	a.conn = conn
	a.conn.SetReadDeadline(time.Now().Add(pongWait))
	a.conn.SetPongHandler(func(string) error {
		a.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if err := a.subscribeLocked(symbols); err != nil {
		return err
	}

	go a.readLoop(ctx)
	go a.pingLoop(ctx)
	return nil
}

func (a *Adapter) subscribeLocked(symbols []string) error {
	msg := struct {
		Op      string   `json:"op"`
		Symbols []string `json:"symbols"`
	}{Op: "subscribe", Symbols: symbols}

	a.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := a.conn.WriteJSON(msg); err != nil {
		return &venue.Error{Class: venue.ClassConnection, Msg: err.Error()}
	}
	return nil
}

// readLoop decodes inbound frames until the connection drops, then
// reconnects with exponential backoff, re-subscribing on every attempt —
// spec.md 6 requires a fresh BookSnapshot immediately after reconnect, so
// the first decoded message after a reconnect is always treated as one.
func (a *Adapter) readLoop(ctx context.Context) {
	freshSnapshot := false
	delay := reconnectDelay

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := a.conn.ReadMessage()
		if err != nil {
			if a.reconnect(ctx, &delay) {
				freshSnapshot = true
				continue
			}
			return
		}
		delay = reconnectDelay

		var msg depthMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logs.Errorf("example: unmarshal depth message, err: %+v", err)
			continue
		}

		ev, err := a.toMarketEvent(msg, freshSnapshot)
		freshSnapshot = false
		if err != nil {
			logs.Errorf("example: decode market event, err: %+v", err)
			continue
		}

		select {
		case a.marketCh <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (a *Adapter) reconnect(ctx context.Context, delay *time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*delay):
	}
	*delay *= 2
	if *delay > maxReconnectDelay {
		*delay = maxReconnectDelay
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, a.wsURL, nil)
	if err != nil {
		logs.Errorf("example: reconnect dial %s, err: %+v", a.wsURL, err)
		return true
	}
	a.conn = conn
	a.conn.SetReadDeadline(time.Now().Add(pongWait))
	a.conn.SetPongHandler(func(string) error {
		a.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	a.subscribeLocked(a.subscribed)
	logs.Info("example: reconnected, resubscribing and forcing a fresh snapshot")
	return true
}

func (a *Adapter) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			if a.closed {
				a.mu.Unlock()
				return
			}
			if a.conn != nil {
				a.conn.SetWriteDeadline(time.Now().Add(writeWait))
				a.conn.WriteMessage(websocket.PingMessage, nil)
			}
			a.mu.Unlock()
		}
	}
}

func (a *Adapter) toMarketEvent(msg depthMessage, snapshot bool) (venue.MarketEvent, error) {
	bids, err := a.parseLevels(msg.Bids)
	if err != nil {
		return venue.MarketEvent{}, err
	}
	asks, err := a.parseLevels(msg.Asks)
	if err != nil {
		return venue.MarketEvent{}, err
	}

	kind := venue.BookDelta
	if snapshot {
		kind = venue.BookSnapshot
	}
	return venue.MarketEvent{
		Kind: kind, Venue: a.venueID, Symbol: quant.Symbol(msg.Symbol),
		TS: quant.Now(), Bids: bids, Asks: asks,
	}, nil
}

func (a *Adapter) parseLevels(raw [][2]string) ([]book.Level, error) {
	levels := make([]book.Level, 0, len(raw))
	for _, pair := range raw {
		price, err := quant.ParsePrice(pair[0], a.scale)
		if err != nil {
			return nil, errors.Wrap(err, "example: parse price")
		}
		size, err := quant.ParseSize(pair[1], a.scale)
		if err != nil {
			return nil, errors.Wrap(err, "example: parse size")
		}
		levels = append(levels, book.Level{Price: price, Size: size})
	}
	return levels, nil
}

func (a *Adapter) MarketData(ctx context.Context) (<-chan venue.MarketEvent, error) {
	return a.marketCh, nil
}

func (a *Adapter) Executions(ctx context.Context) (<-chan core.ExecutionReport, error) {
	return a.execCh, nil
}

// PlaceOrder, CancelOrder, CancelAllOrders, Balances and OpenOrders are
// REST calls on every real exchange this adapter might front; wiring a
// live HTTP client here is out of scope for the streaming reference this
// package demonstrates, so each returns ClassConnection until a REST
// client is attached.
func (a *Adapter) PlaceOrder(ctx context.Context, order core.NewOrder) (quant.OrderID, error) {
	return 0, &venue.Error{Class: venue.ClassConnection, Msg: "example: REST client not configured"}
}

func (a *Adapter) CancelOrder(ctx context.Context, id quant.OrderID, symbol quant.Symbol) error {
	return &venue.Error{Class: venue.ClassConnection, Msg: "example: REST client not configured"}
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol quant.Symbol) ([]quant.OrderID, error) {
	return nil, &venue.Error{Class: venue.ClassConnection, Msg: "example: REST client not configured"}
}

func (a *Adapter) ServerTime(ctx context.Context) (quant.Timestamp, error) {
	return quant.Now(), nil
}

func (a *Adapter) Balances(ctx context.Context) ([]venue.Balance, error) {
	return nil, &venue.Error{Class: venue.ClassConnection, Msg: "example: REST client not configured"}
}

func (a *Adapter) OpenOrders(ctx context.Context, symbol quant.Symbol, hasSymbol bool) ([]core.Order, error) {
	return nil, &venue.Error{Class: venue.ClassConnection, Msg: "example: REST client not configured"}
}

// Close terminates the connection and both background loops.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
