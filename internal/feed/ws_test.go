package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func barServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSSourceSubscribesAndStreamsBars(t *testing.T) {
	url := barServer(t, func(conn *websocket.Conn) {
		// Read and validate the subscribe request.
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsSubscribe
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal subscribe: %v", err)
			return
		}
		if req.Op != "subscribe" || req.Channel != "bars" {
			t.Errorf("unexpected subscribe request: %+v", req)
		}
		if req.Symbol != "EURUSD" || req.Timeframe != "1m" {
			t.Errorf("unexpected subscription target: %+v", req)
		}

		for i := 0; i < 2; i++ {
			bar := wsBarMessage{
				Type:        "bar",
				Symbol:      "EURUSD",
				TimestampMs: int64(1700000000000 + i*60000),
				Open:        1.1,
				High:        1.2,
				Low:         1.0,
				Close:       1.15,
				Volume:      500,
			}
			if err := conn.WriteJSON(bar); err != nil {
				return
			}
		}

		// Keep the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx := context.Background()
	src, err := NewWSSource(ctx, url, "EURUSD", "1m", nil)
	if err != nil {
		t.Fatalf("NewWSSource: %v", err)
	}
	defer src.Close()

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	first, err := src.Next(readCtx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first.TimestampMs != 1700000000000 || first.Close != 1.15 {
		t.Errorf("unexpected first bar: %+v", first)
	}

	second, err := src.Next(readCtx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if second.TimestampMs != 1700000060000 {
		t.Errorf("unexpected second bar timestamp: %d", second.TimestampMs)
	}
}

func TestWSSourceIgnoresNonBarMessages(t *testing.T) {
	url := barServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteJSON(wsBarMessage{Type: "bar", TimestampMs: 42, Close: 1.1})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	src, err := NewWSSource(context.Background(), url, "EURUSD", "1m", nil)
	if err != nil {
		t.Fatalf("NewWSSource: %v", err)
	}
	defer src.Close()

	readCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bar, err := src.Next(readCtx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if bar.TimestampMs != 42 {
		t.Errorf("expected the bar message to survive the noise, got %+v", bar)
	}
}

func TestWSSourceNextAfterClose(t *testing.T) {
	url := barServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	src, err := NewWSSource(context.Background(), url, "EURUSD", "1m", nil)
	if err != nil {
		t.Fatalf("NewWSSource: %v", err)
	}
	src.Close()

	if _, err := src.Next(context.Background()); err != ErrEndOfData {
		t.Errorf("expected ErrEndOfData after close, got %v", err)
	}
}
