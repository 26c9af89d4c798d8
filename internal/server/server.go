package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/lotas/recentswitch/internal/applog"
	"nhooyr.io/websocket"
)

// ErrNotConnected is returned when no extension is attached.
var ErrNotConnected = errors.New("extension not connected")

// Incoming frame types.
const (
	TypeTabActivated = "tab.activated"
	TypeTabUpdated   = "tab.updated"
	TypeTabRemoved   = "tab.removed"
	TypeCommand      = "command"
	TypeRequest      = "request"
)

// ActionResponse is the outgoing action answering a request frame.
const ActionResponse = "response"

// IncomingMsg is a message from the extension to the daemon.
type IncomingMsg struct {
	Type   string          `json:"type"`
	TabID  int             `json:"tabId,omitempty"`
	Tab    json.RawMessage `json:"tab,omitempty"`
	Change json.RawMessage `json:"change,omitempty"`
	// Command and request fields
	Name string          `json:"name,omitempty"`
	Body json.RawMessage `json:"body,omitempty"`
	// Command response fields
	ID     string          `json:"id,omitempty"`
	OK     *bool           `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// IsResponse reports whether the frame answers an earlier Call.
func (m IncomingMsg) IsResponse() bool {
	return m.ID != "" && m.OK != nil && m.Type == ""
}

// OutgoingMsg is a command from the daemon to the extension, or a response
// to one of the extension's requests.
type OutgoingMsg struct {
	ID       string          `json:"id"`
	Action   string          `json:"action"`
	TabID    int             `json:"tabId,omitempty"`
	WindowID int             `json:"windowId,omitempty"`
	URL      string          `json:"url,omitempty"`
	Files    []string        `json:"files,omitempty"`
	Message  json.RawMessage `json:"message,omitempty"`
	// Response fields
	OK     *bool           `json:"ok,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// CallError is a failure reported by the extension for a command.
type CallError struct {
	Action  string
	Code    string
	Message string
}

func (e *CallError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Action, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

type callResult struct {
	msg IncomingMsg
	err error
}

// Server manages the WebSocket connection to the extension.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	pending map[string]chan callResult
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port:    port,
		msgs:    make(chan IncomingMsg, 64),
		pending: make(map[string]chan callResult),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of incoming events, commands and requests.
// Responses to Call are routed to their caller and never appear here.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send writes a frame to the connected extension without waiting for a reply.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn := s.conn
	ctx := s.connCtx
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	applog.Debug("ws.send", "action", msg.Action, "id", msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Call sends a command and waits for the extension's matching response.
// It returns the response result, or a *CallError when the extension
// reports failure.
func (s *Server) Call(ctx context.Context, msg OutgoingMsg) (json.RawMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	ch := make(chan callResult, 1)

	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	s.pending[msg.ID] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.Send(msg); err != nil {
		return nil, fmt.Errorf("send %s: %w", msg.Action, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if !*res.msg.OK {
			return nil, &CallError{Action: msg.Action, Code: res.msg.Code, Message: res.msg.Error}
		}
		return res.msg.Result, nil
	}
}

// Respond answers a request frame. A nil err produces an ok response
// carrying result.
func (s *Server) Respond(id string, result any, err error) error {
	ok := err == nil
	out := OutgoingMsg{ID: id, Action: ActionResponse, OK: &ok}
	if err != nil {
		out.Error = err.Error()
	}
	if result != nil {
		data, mErr := json.Marshal(result)
		if mErr != nil {
			return fmt.Errorf("encode response: %w", mErr)
		}
		out.Result = data
	}
	return s.Send(out)
}

func (s *Server) resolve(msg IncomingMsg) {
	s.mu.Lock()
	ch, ok := s.pending[msg.ID]
	s.mu.Unlock()
	if !ok {
		applog.Info("ws.orphan_response", "id", msg.ID)
		return
	}
	select {
	case ch <- callResult{msg: msg}:
	default:
	}
}

// failPending aborts every in-flight Call. Caller holds s.mu.
func (s *Server) failPending() {
	for id, ch := range s.pending {
		select {
		case ch <- callResult{err: ErrNotConnected}:
		default:
		}
		delete(s.pending, id)
	}
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(16 << 20) // captures arrive as large data URLs

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced")
			s.conn.CloseNow()
			s.failPending()
		}
		s.conn = conn
		s.connCtx = ctx
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connCtx = nil
				s.failPending()
			}
			s.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			if msg.IsResponse() {
				s.resolve(msg)
				continue
			}
			applog.Debug("ws.recv", "type", msg.Type, "tabId", msg.TabID)
			select {
			case s.msgs <- msg:
			default:
				applog.Info("ws.dropped", "type", msg.Type)
			}
		}
	})
}

// ListenAndServe starts the WebSocket server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
