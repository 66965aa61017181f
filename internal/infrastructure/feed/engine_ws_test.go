package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/bsp_resonance/internal/domain"
)

type barEvent struct {
	symbol string
	level  string
	lv     int
	bars   int
	points int
	pens   int
}

func engineServer(t *testing.T, script []any) (*httptest.Server, <-chan subscribeRequest) {
	t.Helper()
	subs := make(chan subscribeRequest, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subs <- sub
		for _, m := range script {
			if raw, ok := m.(string); ok {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(raw))
				continue
			}
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	return srv, subs
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestEngineClient_AppliesMessages(t *testing.T) {
	t0 := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	pens := 2
	script := []any{
		Message{Topic: TopicBar, Symbol: "600000", Level: "30m", Bar: &domain.Bar{Index: 0, Time: t0.Add(30 * time.Minute), Close: 10}},
		Message{Topic: TopicBar, Symbol: "600000", Level: "5m", Bar: &domain.Bar{Index: 5, Time: t0.Add(30 * time.Minute), Close: 10},
			Points: []domain.StructuralPoint{{BarIndex: 5, Direction: domain.DirectionBuy, Type: "1", Price: 9.8}}, Pens: &pens},
		Message{Topic: TopicAlign, Symbol: "600000", Level: "5m", Index: 5, Parent: 0},
		`{not json`,
		Message{Topic: TopicBar, Symbol: "600000", Level: "week", Bar: &domain.Bar{Index: 0}},
		Message{Topic: TopicBar, Symbol: "600000", Level: "30m", Bar: &domain.Bar{Index: 0}},
		Message{Topic: TopicBar, Symbol: "000001", Level: "30m", Bar: &domain.Bar{Index: 3, Close: 5}},
	}
	srv, subs := engineServer(t, script)

	client := NewEngineClient(wsURL(srv), []string{"30m", "5m"}, nil)
	events := make(chan barEvent, 10)
	client.OnBar(func(symbol string, levels domain.Levels, lv int) {
		events <- barEvent{
			symbol: symbol,
			level:  levels[lv].Name,
			lv:     lv,
			bars:   len(levels[lv].Bars),
			points: len(levels[lv].Points),
			pens:   levels[lv].Pens,
		}
	})

	require.NoError(t, client.Connect(context.Background(), []string{"600000", "000001"}))

	sub := <-subs
	assert.Equal(t, "subscribe", sub.Op)
	assert.Equal(t, []string{"600000", "000001"}, sub.Args.Symbols)
	assert.Equal(t, []string{"30m", "5m"}, sub.Args.Levels)

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop")
	}
	close(events)

	var got []barEvent
	for ev := range events {
		got = append(got, ev)
	}
	// rejected messages never reach the handlers
	require.Len(t, got, 3)
	assert.Equal(t, barEvent{symbol: "600000", level: "30m", lv: 0, bars: 1}, got[0])
	assert.Equal(t, barEvent{symbol: "600000", level: "5m", lv: 1, bars: 1, points: 1, pens: 2}, got[1])
	assert.Equal(t, "000001", got[2].symbol)

	levels, ok := client.Snapshot("600000")
	require.True(t, ok)
	bar, ok := levels[1].Bar(5)
	require.True(t, ok)
	parent, ok := bar.ParentIndex()
	require.True(t, ok)
	assert.Equal(t, 0, parent)

	assert.Equal(t, []string{"000001", "600000"}, client.Symbols())
}

func TestEngineClient_DialError(t *testing.T) {
	client := NewEngineClient("ws://127.0.0.1:1/engine", []string{"30m"}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, client.Connect(ctx, []string{"600000"}))

	select {
	case <-client.Done():
	default:
		t.Fatal("done must be closed while disconnected")
	}
}

func subscribedClient(symbols ...string) (*EngineClient, *int) {
	client := NewEngineClient("ws://unused", []string{"30m", "5m"}, nil)
	for _, s := range symbols {
		client.symbols[s] = true
	}
	calls := 0
	client.OnBar(func(string, domain.Levels, int) { calls++ })
	return client, &calls
}

func TestEngineClient_RejectedBarLeavesBookUnchanged(t *testing.T) {
	client, calls := subscribedClient("600000")

	require.NoError(t, client.handle(Message{Topic: TopicBar, Symbol: "600000", Level: "30m", Bar: &domain.Bar{Index: 0, Close: 10}}))

	bad := Message{Topic: TopicBar, Symbol: "600000", Level: "30m", Bar: &domain.Bar{Index: 1, Close: 10.5},
		Points: []domain.StructuralPoint{
			{BarIndex: 1, Direction: domain.DirectionBuy, Type: "1", Price: 10.4},
			{BarIndex: 1, Direction: "UP", Type: "2", Price: 10.4},
		}}
	assert.Error(t, client.handle(bad))
	assert.Equal(t, 1, *calls)

	levels, ok := client.Snapshot("600000")
	require.True(t, ok)
	assert.Len(t, levels[0].Bars, 1)
	assert.Empty(t, levels[0].Points)

	// the corrected message is accepted and reaches the handlers
	bad.Points = bad.Points[:1]
	require.NoError(t, client.handle(bad))
	assert.Equal(t, 2, *calls)
	levels, _ = client.Snapshot("600000")
	assert.Len(t, levels[0].Bars, 2)
	assert.Len(t, levels[0].Points, 1)
}

func TestEngineClient_DropsUnknownSymbolsAndLevels(t *testing.T) {
	client, calls := subscribedClient("600000")

	assert.Error(t, client.handle(Message{Topic: TopicBar, Symbol: "NOT_SUBSCRIBED", Level: "30m", Bar: &domain.Bar{Index: 0}}))
	assert.Error(t, client.handle(Message{Topic: TopicBar, Symbol: "600000", Level: "week", Bar: &domain.Bar{Index: 0}}))
	assert.Error(t, client.handle(Message{Topic: TopicAlign, Symbol: "600000", Level: "5m", Index: 0, Parent: 0}))

	assert.Zero(t, *calls)
	assert.Empty(t, client.Symbols())
	_, ok := client.Snapshot("NOT_SUBSCRIBED")
	assert.False(t, ok)
}
