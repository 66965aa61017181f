package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
	"github.com/vitos/bsp_resonance/internal/metrics"
)

const (
	TopicBar   = "bar"
	TopicAlign = "align"
)

// Message is one update pushed by the structural engine. A bar message carries
// the newly finalized bar plus the points it triggered; an align message links
// an existing bar to its coarser parent.
type Message struct {
	Topic  string                   `json:"topic"`
	Symbol string                   `json:"symbol"`
	Level  string                   `json:"level"`
	Bar    *domain.Bar              `json:"bar,omitempty"`
	Points []domain.StructuralPoint `json:"points,omitempty"`
	Pens   *int                     `json:"pens,omitempty"`
	Index  int                      `json:"index,omitempty"`
	Parent int                      `json:"parent,omitempty"`
}

type subscribeRequest struct {
	Op   string        `json:"op"`
	Args subscribeArgs `json:"args"`
}

type subscribeArgs struct {
	Symbols []string `json:"symbols"`
	Levels  []string `json:"levels"`
}

// BarHandler is called from the read loop after a bar has been applied. The
// levels must not be retained past the call.
type BarHandler func(symbol string, levels domain.Levels, lv int)

// EngineClient keeps per-symbol level data in sync with the structural engine's
// websocket stream.
type EngineClient struct {
	wsURL  string
	levels []string
	logger *zap.Logger

	conn      *websocket.Conn
	done      chan struct{}
	callbacks []BarHandler
	symbols   map[string]bool
	books     map[string]domain.Levels
	mu        sync.Mutex
}

func NewEngineClient(wsURL string, levels []string, logger *zap.Logger) *EngineClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	close(done)
	return &EngineClient{
		wsURL:   wsURL,
		levels:  levels,
		logger:  logger,
		done:    done,
		symbols: make(map[string]bool),
		books:   make(map[string]domain.Levels),
	}
}

func (c *EngineClient) OnBar(cb BarHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// Connect dials the engine and subscribes to symbols. Messages for any other
// symbol are dropped. Level data received before a reconnect is kept.
func (c *EngineClient) Connect(ctx context.Context, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return errors.New("engine feed already connected")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial engine: %w", err)
	}

	sub := subscribeRequest{Op: "subscribe", Args: subscribeArgs{Symbols: symbols, Levels: c.levels}}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	c.symbols = make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		c.symbols[sym] = true
	}
	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)

	c.logger.Info("Connected to structural engine", zap.String("url", c.wsURL), zap.Strings("symbols", symbols))
	return nil
}

// Done is closed when the current connection's read loop exits.
func (c *EngineClient) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *EngineClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func (c *EngineClient) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		conn.Close()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		close(done)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Info("Engine feed closed")
			} else {
				c.logger.Warn("Engine feed read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("Engine feed unmarshal error", zap.Error(err))
			continue
		}
		metrics.FeedMessagesTotal.WithLabelValues(msg.Topic).Inc()

		if err := c.handle(msg); err != nil {
			c.logger.Warn("Engine message rejected",
				zap.String("topic", msg.Topic),
				zap.String("symbol", msg.Symbol),
				zap.String("level", msg.Level),
				zap.Error(err))
		}
	}
}

func (c *EngineClient) handle(msg Message) error {
	c.mu.Lock()
	levels, lv, err := c.apply(msg)
	callbacks := make([]BarHandler, len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	if err != nil || msg.Topic != TopicBar {
		return err
	}
	for _, cb := range callbacks {
		cb(msg.Symbol, levels, lv)
	}
	return nil
}

// apply mutates the symbol's book. A rejected message leaves the book as it
// was. Callers hold c.mu.
func (c *EngineClient) apply(msg Message) (domain.Levels, int, error) {
	if msg.Symbol == "" {
		return nil, 0, errors.New("missing symbol")
	}
	if !c.symbols[msg.Symbol] {
		return nil, 0, fmt.Errorf("symbol %q not subscribed", msg.Symbol)
	}
	lv := slices.Index(c.levels, msg.Level)
	if lv < 0 {
		return nil, 0, fmt.Errorf("unknown level %q", msg.Level)
	}

	switch msg.Topic {
	case TopicBar:
		if msg.Bar == nil {
			return nil, 0, errors.New("bar message without bar")
		}
		levels := c.book(msg.Symbol)
		data := levels[lv]
		bars, points := len(data.Bars), len(data.Points)
		if err := applyBar(data, msg); err != nil {
			data.Bars = data.Bars[:bars]
			data.Points = data.Points[:points]
			return nil, 0, err
		}
		if msg.Pens != nil {
			data.Pens = *msg.Pens
		}
		return levels, lv, nil
	case TopicAlign:
		levels, ok := c.books[msg.Symbol]
		if !ok {
			return nil, 0, fmt.Errorf("align before any bar of %s", msg.Symbol)
		}
		return levels, lv, levels[lv].SetParent(msg.Index, msg.Parent)
	default:
		return nil, 0, fmt.Errorf("unknown topic %q", msg.Topic)
	}
}

func applyBar(data *domain.LevelData, msg Message) error {
	if err := data.AppendBar(*msg.Bar); err != nil {
		return err
	}
	for _, p := range msg.Points {
		if err := data.AppendPoint(p); err != nil {
			return err
		}
	}
	return nil
}

func (c *EngineClient) book(symbol string) domain.Levels {
	levels, ok := c.books[symbol]
	if !ok {
		levels = make(domain.Levels, len(c.levels))
		for i, name := range c.levels {
			levels[i] = domain.NewLevelData(name)
		}
		c.books[symbol] = levels
	}
	return levels
}

// Snapshot returns a copy of the symbol's level data.
func (c *EngineClient) Snapshot(symbol string) (domain.Levels, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	levels, ok := c.books[symbol]
	if !ok {
		return nil, false
	}
	out := make(domain.Levels, len(levels))
	for i, data := range levels {
		out[i] = data.Until(math.MaxInt)
	}
	return out, true
}

// Symbols lists the symbols with received data.
func (c *EngineClient) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.books))
	for s := range c.books {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
