package web

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/guidoenr/spherizer/internal/app"
	"github.com/guidoenr/spherizer/internal/config"
	"github.com/guidoenr/spherizer/internal/interaction"
	"github.com/guidoenr/spherizer/internal/noise"
	"github.com/guidoenr/spherizer/internal/params"
	"github.com/guidoenr/spherizer/internal/render"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed static
var staticFiles embed.FS

const (
	statusInterval  = 500 * time.Millisecond
	pingInterval    = 54 * time.Second
	readTimeout     = 60 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 2 * time.Second
	sendBuffer      = 8
	maxMessageSize  = 4096
	maxBodySize     = 1 << 16
)

// Controller is the part of the app the server drives.
type Controller interface {
	Status() app.Status
	Params() params.Parameters
	PatchParams(patch app.ParamsPatch) bool
	Send(in app.PointerInput) bool
}

// Options configures a Server.
type Options struct {
	Addr string
	// Viper and SavePath back the save endpoint. A nil Viper disables saving.
	Viper    *viper.Viper
	SavePath string
	Logger   *zap.Logger
}

// Server streams projected frames to browsers over websockets and forwards their
// pointer events to the app.
type Server struct {
	opts     Options
	app      Controller
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client

	frames chan []byte
	saveMu sync.Mutex
}

type outbound struct {
	kind int
	data []byte
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan outbound
	server *Server
}

// pointerMessage is what browsers send: an event kind and a position in NDC.
type pointerMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// NewServer creates a server for the given app.
func NewServer(ctrl Controller, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8080"
	}
	return &Server{
		opts:    opts,
		app:     ctrl,
		log:     opts.Logger.Named("web"),
		clients: make(map[string]*client),
		frames:  make(chan []byte, 2),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/save", s.handleSave)
	mux.HandleFunc("/api/palettes", s.handleNames(render.PaletteNames))
	mux.HandleFunc("/api/colorModes", s.handleNames(render.ColorModeNames))
	mux.HandleFunc("/api/quality", s.handleNames(render.QualityModeNames))
	mux.HandleFunc("/api/noise", s.handleNames(noise.Names))
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.log.Info("server listening", zap.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.Loop(gctx)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Loop fans frames and status out to clients until ctx is cancelled, then drops every client.
func (s *Server) Loop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	defer s.closeClients()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.frames:
			s.broadcast(outbound{kind: websocket.BinaryMessage, data: frame})
		case <-ticker.C:
			data, err := json.Marshal(s.app.Status())
			if err != nil {
				s.log.Warn("encode status", zap.Error(err))
				continue
			}
			s.broadcast(outbound{kind: websocket.TextMessage, data: data})
		}
	}
}

// PublishFrame encodes a frame for the clients. It never blocks the frame loop;
// when clients are slow the newest frame replaces the queued one.
func (s *Server) PublishFrame(f app.FrameData) {
	if s.ClientCount() == 0 {
		return
	}
	data := EncodeFrame(f)
	for {
		select {
		case s.frames <- data:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(msg outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.log.Debug("dropping slow client", zap.String("client", id))
			close(c.send)
			delete(s.clients, id)
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.id]; ok {
		close(c.send)
		delete(s.clients, c.id)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		close(c.send)
		delete(s.clients, id)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Status())
}

// handleParams returns the parameters on GET. POST merges the fields present in
// the body over the parameters current when the frame loop applies it, so
// concurrent posts that touch different fields all land.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.app.Params())
	case http.MethodPost:
		if !isJSON(r) {
			http.Error(w, "content type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		preview, err := mergeParams(s.app.Params(), body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		patch := func(p params.Parameters) params.Parameters {
			merged, err := mergeParams(p, body)
			if err != nil {
				return p
			}
			return merged
		}
		if !s.app.PatchParams(patch) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, preview)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func mergeParams(p params.Parameters, body []byte) (params.Parameters, error) {
	if err := json.Unmarshal(body, &p); err != nil {
		return p, err
	}
	return p.Sanitize(), nil
}

// isJSON rejects form and plain-text bodies, which browsers send cross-origin without a preflight.
func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.opts.Viper == nil {
		http.Error(w, "saving disabled", http.StatusNotImplemented)
		return
	}

	s.saveMu.Lock()
	err := config.SaveEffects(s.opts.Viper, s.opts.SavePath, s.app.Params())
	path := s.opts.SavePath
	if path == "" {
		path = s.opts.Viper.ConfigFileUsed()
	}
	s.saveMu.Unlock()
	if err != nil {
		s.log.Warn("save config", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "path": path})
}

func (s *Server) handleNames(names func() []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, names())
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan outbound, sendBuffer),
		server: s,
	}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.log.Info("client connected", zap.String("client", c.id), zap.String("remote", r.RemoteAddr))

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
		c.server.log.Info("client disconnected", zap.String("client", c.id))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		in, ok := decodePointer(data)
		if !ok {
			continue
		}
		c.server.app.Send(in)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func decodePointer(data []byte) (app.PointerInput, bool) {
	var msg pointerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return app.PointerInput{}, false
	}
	in := app.PointerInput{X: msg.X, Y: msg.Y, At: time.Now()}
	switch strings.ToLower(msg.Type) {
	case "move":
		in.Kind = interaction.EventMove
	case "click", "down":
		in.Kind = interaction.EventClick
	case "leave":
		in.Kind = interaction.EventLeave
	default:
		return app.PointerInput{}, false
	}
	return in, true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
