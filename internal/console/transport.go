package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/puara/puara/internal/logging"
)

// Transport names used in logs.
const (
	TransportStdio     = "stdio"
	TransportSerial    = "serial"
	TransportWebSocket = "websocket"
)

// Serve runs a line-oriented session: each line read from r is executed and
// its reply written to w. It returns when r is exhausted or ctx is done.
func (c *Console) Serve(ctx context.Context, r io.Reader, w io.Writer, transport, remote string) error {
	s := &session{transport: transport, remote: remote, w: w}
	c.addSession(s)
	defer c.removeSession(s)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			if err := c.handleLine(ctx, s, line); err != nil {
				return err
			}
		}
	}
}

func (c *Console) handleLine(ctx context.Context, s *session, line string) error {
	if line == "" {
		return nil
	}
	logging.LogConsoleCommand(s.transport, s.remote, redactLine(line))
	reply := c.Execute(ctx, line)
	if reply == "" {
		return nil
	}
	return s.writeLine(reply)
}

// ServeSerial opens a serial device and serves the console on it until ctx
// is done.
func (c *Console) ServeSerial(ctx context.Context, device string, baud int) error {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	logging.Info("Serial console listening",
		zap.String("device", device),
		zap.Int("baud", baud),
	)

	// closing the port unblocks the pending read
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer func() {
		if stop() {
			port.Close()
		}
	}()

	err = c.Serve(ctx, port, port, TransportSerial, device)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsWriter sends each write as one text frame.
type wsWriter struct {
	conn *websocket.Conn
}

func (w wsWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return n, nil
}

// WebSocketHandler serves the console over WebSocket. Each text frame
// received is one command line; each reply is one text frame.
func (c *Console) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error("WebSocket upgrade failed",
				zap.String("remote", r.RemoteAddr),
				zap.Error(err),
			)
			return
		}
		defer conn.Close()

		s := &session{transport: TransportWebSocket, remote: r.RemoteAddr, w: wsWriter{conn: conn}}
		c.addSession(s)
		defer c.removeSession(s)

		ctx := r.Context()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logging.Warn("WebSocket read failed",
						zap.String("remote", r.RemoteAddr),
						zap.Error(err),
					)
				}
				return
			}
			if msgType != websocket.TextMessage {
				logging.LogRawBytes("Ignoring non-text frame", data)
				continue
			}
			if err := c.handleLine(ctx, s, string(data)); err != nil {
				return
			}
		}
	})
}

// Server exposes the console over WebSocket on a TCP address.
type Server struct {
	console *Console
	addr    string

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	wg       sync.WaitGroup
}

// NewServer creates a WebSocket console server for addr.
func NewServer(c *Console, addr string) *Server {
	return &Server{console: c, addr: addr}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/console", s.console.WebSocketHandler())

	s.mu.Lock()
	s.listener = ln
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.http
	s.mu.Unlock()

	logging.Info("WebSocket console listening", zap.String("address", ln.Addr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("WebSocket console stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for the server to exit.
// Hijacked WebSocket connections are not tracked by http.Server, so they
// are closed by the handler once their read fails.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	logging.Info("Shutting down WebSocket console")
	err := srv.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Shutdown timeout exceeded")
		return ctx.Err()
	}
	return err
}
