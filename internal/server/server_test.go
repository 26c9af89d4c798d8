package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lotas/recentswitch/internal/applog"
	"nhooyr.io/websocket"
)

func dial(t *testing.T, srv *Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	// Give server a moment to register the connection
	deadline := time.Now().Add(time.Second)
	for !srv.Connected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return conn, ctx
}

func TestServerAcceptsConnection(t *testing.T) {
	srv := New(0) // port 0 = pick any free port
	msgs := srv.Messages()
	conn, ctx := dial(t, srv)

	evt := IncomingMsg{Type: TypeTabActivated, TabID: 5}
	data, _ := json.Marshal(evt)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Type != TypeTabActivated || msg.TabID != 5 {
			t.Errorf("got %+v, want tab.activated/5", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestServerSendsCommand(t *testing.T) {
	srv := New(0)
	conn, ctx := dial(t, srv)

	cmd := OutgoingMsg{ID: "cmd-1", Action: "tabs.activate", TabID: 42}
	if err := srv.Send(cmd); err != nil {
		t.Fatalf("send: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got OutgoingMsg
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "cmd-1" || got.Action != "tabs.activate" || got.TabID != 42 {
		t.Errorf("got %+v, want cmd-1/tabs.activate/42", got)
	}
}

func TestSendWithoutConnection(t *testing.T) {
	srv := New(0)
	if err := srv.Send(OutgoingMsg{Action: "tabs.query"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send err = %v, want ErrNotConnected", err)
	}
	if _, err := srv.Call(context.Background(), OutgoingMsg{Action: "tabs.query"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Call err = %v, want ErrNotConnected", err)
	}
}

// echoExtension answers every command it reads with handler's reply.
func echoExtension(t *testing.T, ctx context.Context, conn *websocket.Conn, handler func(OutgoingMsg) IncomingMsg) {
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var cmd OutgoingMsg
			if err := json.Unmarshal(data, &cmd); err != nil {
				return
			}
			reply := handler(cmd)
			reply.ID = cmd.ID
			out, _ := json.Marshal(reply)
			if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
				return
			}
		}
	}()
}

func TestCallReturnsResult(t *testing.T) {
	srv := New(0)
	conn, ctx := dial(t, srv)

	ok := true
	echoExtension(t, ctx, conn, func(cmd OutgoingMsg) IncomingMsg {
		return IncomingMsg{OK: &ok, Result: json.RawMessage(`{"id":7,"url":"https://x.com/"}`)}
	})

	result, err := srv.Call(ctx, OutgoingMsg{Action: "tabs.get", TabID: 7})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	tab, err := ParseTab(result)
	if err != nil {
		t.Fatal(err)
	}
	if tab.ID != 7 {
		t.Errorf("tab id = %d, want 7", tab.ID)
	}

	// Responses never leak into the event channel.
	select {
	case msg := <-srv.Messages():
		t.Errorf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCallReportsExtensionFailure(t *testing.T) {
	srv := New(0)
	conn, ctx := dial(t, srv)

	notOK := false
	echoExtension(t, ctx, conn, func(cmd OutgoingMsg) IncomingMsg {
		return IncomingMsg{OK: &notOK, Code: "not_found", Error: "No tab with id: 9"}
	})

	_, err := srv.Call(ctx, OutgoingMsg{Action: "tabs.get", TabID: 9})
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("err = %v, want *CallError", err)
	}
	if callErr.Code != "not_found" || callErr.Action != "tabs.get" {
		t.Errorf("got %+v", callErr)
	}
}

func TestCallHonoursContext(t *testing.T) {
	srv := New(0)
	_, ctx := dial(t, srv)

	// The extension never answers.
	callCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := srv.Call(callCtx, OutgoingMsg{Action: "tabs.query"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestCallFailsOnDisconnect(t *testing.T) {
	srv := New(0)
	conn, ctx := dial(t, srv)

	done := make(chan error, 1)
	go func() {
		_, err := srv.Call(ctx, OutgoingMsg{Action: "tabs.query"})
		done <- err
	}()

	// Wait for the command to arrive, then drop the connection.
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}
	conn.Close(websocket.StatusNormalClosure, "bye")

	select {
	case err := <-done:
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("err = %v, want ErrNotConnected", err)
		}
	case <-ctx.Done():
		t.Fatal("call did not return after disconnect")
	}
}

func TestRespond(t *testing.T) {
	srv := New(0)
	conn, ctx := dial(t, srv)

	if err := srv.Respond("req-1", map[string]bool{"success": true}, nil); err != nil {
		t.Fatalf("respond: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got OutgoingMsg
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "req-1" || got.Action != ActionResponse || got.OK == nil || !*got.OK {
		t.Errorf("got %+v", got)
	}
	if string(got.Result) != `{"success":true}` {
		t.Errorf("result = %s", got.Result)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAcceptFailureLoggedOnce(t *testing.T) {
	var logs lockedBuffer
	applog.SetOutput(&logs, "info")
	t.Cleanup(applog.Close)

	ts := httptest.NewServer(New(0).Handler())
	defer ts.Close()

	// A plain GET is not a WebSocket upgrade.
	resp, err := ts.Client().Get(ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(logs.String(), "ws.accept") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := strings.Count(logs.String(), "ws.accept"); n != 1 {
		t.Errorf("ws.accept logged %d times, want 1:\n%s", n, logs.String())
	}
}
