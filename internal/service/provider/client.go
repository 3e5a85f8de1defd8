package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a PriceStream backed by the provider WebSocket feed.
type Client struct {
	apiToken       string
	websocketURL   string
	zones          []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new provider PriceStream.
func New(apiToken, websocketURL string, zones []string, reconnectDelay, pingInterval time.Duration) drepo.PriceStream {
	return &Client{
		apiToken:       apiToken,
		websocketURL:   websocketURL,
		zones:          zones,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiToken)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("provider connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("provider: connected")
	return nil
}

// Subscribe subscribes to configured market zones.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("provider not connected")
	}
	for _, z := range c.zones {
		msg := map[string]string{"type": "subscribe", "zone": z}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", z, err)
		}
		log.Printf("provider: subscribed %s", z)
	}
	return nil
}

type wsPrice struct {
	Zone     string  `json:"zone"`
	StartsAt int64   `json:"starts_at"` // unix seconds or ms
	Duration int64   `json:"duration"`  // seconds
	Price    float64 `json:"price"`
	Level    string  `json:"level"`
	Currency string  `json:"currency"`
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsPrice `json:"data"`
}

// Read streams PriceUpdate events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.PriceUpdate, <-chan error) {
	updates := make(chan *models.PriceUpdate, 1024)
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
		defer close(updates)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("provider conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("provider read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-price frames
					continue
				}
				if m.Type != "price" {
					continue
				}
				for _, d := range m.Data {
					sec := d.StartsAt
					if sec > 1e11 { // ms
						sec = sec / 1000
					}
					u := &models.PriceUpdate{
						Zone:     d.Zone,
						StartsAt: sec,
						Duration: d.Duration,
						Price:    d.Price,
						Level:    d.Level,
						Currency: d.Currency,
					}
					select {
					case updates <- u:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return updates, errs
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
