package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"FundPulse/internal/domain/models"
	drepo "FundPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a PriceStream backed by the chain gateway WebSocket.
type Client struct {
	apiKey         string
	websocketURL   string
	channel        string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new gateway PriceStream.
func New(apiKey, websocketURL, channel string, reconnectDelay, pingInterval time.Duration) drepo.PriceStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		channel:        channel,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("pricefeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("pricefeed: connected")
	return nil
}

// Subscribe subscribes to the configured price channel.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("pricefeed not connected")
	}
	msg := map[string]string{"type": "subscribe", "channel": c.channel}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.channel, err)
	}
	log.Printf("pricefeed: subscribed %s", c.channel)
	return nil
}

type feedMessage struct {
	Type string              `json:"type"`
	Data *models.PriceUpdate `json:"data"`
}

// Read streams PriceUpdate events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.PriceUpdate, <-chan error) {
	updates := make(chan *models.PriceUpdate, 64)
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
					errs <- fmt.Errorf("pricefeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("pricefeed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-event frames
					continue
				}
				if m.Type != "price_update" || m.Data == nil {
					continue
				}
				select {
				case updates <- m.Data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, errs
}

// Reconnect closes and re-establishes the connection after a delay.
func (c *Client) Reconnect(ctx context.Context) error {
	c.connected = false
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected returns connection status.
func (c *Client) IsConnected() bool { return c.connected }
