package orderfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Client implements an OrderStream backed by the storefront order-event
// WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	storeIDs       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new order-feed OrderStream.
func New(apiKey, websocketURL string, storeIDs []string, reconnectDelay, pingInterval time.Duration) drepo.OrderStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		storeIDs:       storeIDs,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("orderfeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("orderfeed: connected")
	return nil
}

// Subscribe subscribes to the configured stores.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("orderfeed not connected")
	}
	for _, s := range c.storeIDs {
		msg := map[string]string{"type": "subscribe", "store_id": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("orderfeed: subscribed %s", s)
	}
	return nil
}

type feedEvent struct {
	EventID   string  `json:"event_id"`
	StoreID   string  `json:"store_id"`
	ProductID string  `json:"product_id"`
	VariantID string  `json:"variant_id"`
	Type      string  `json:"type"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	T         int64   `json:"t"` // ms
}

type feedMessage struct {
	Type string      `json:"type"`
	Data []feedEvent `json:"data"`
}

// Read streams OrderEvents and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.OrderEvent, <-chan error) {
	events := make(chan *models.OrderEvent, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("orderfeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("orderfeed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-event frames
					continue
				}
				if m.Type != "order_event" {
					continue
				}
				for _, d := range m.Data {
					if d.Type != "sale" && d.Type != "return" {
						continue
					}
					ev := &models.OrderEvent{
						EventID:   d.EventID,
						StoreID:   d.StoreID,
						ProductID: d.ProductID,
						VariantID: d.VariantID,
						Type:      d.Type,
						Quantity:  d.Quantity,
						UnitPrice: decimal.NewFromFloat(d.UnitPrice),
						Timestamp: d.T / 1000,
					}
					select {
					case events <- ev:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return events, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
