// Package preview holds the shared state behind splittone-preview: the
// loaded source frame, the current grade, and the websocket clients
// receiving rendered proofs.
//
// The source frame is proxied down once at startup; every grade change
// re-renders the proxy, encodes a PNG proof, and pushes it to all
// connected clients as a JSON header message followed by a binary PNG
// message. Clients send partial grade updates back as JSON with the
// same field names the grade document uses.
package preview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mrjoshuak/go-splittone/frameio"
	"github.com/mrjoshuak/go-splittone/grade"
	"github.com/mrjoshuak/go-splittone/render"
	"github.com/mrjoshuak/go-splittone/tone"
)

const (
	// Proofs are proxied to fit this box before encoding.
	proxyWidth  = 1280
	proxyHeight = 720

	writeWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	// The server is meant for LAN preview from whatever host the
	// grading UI is served on, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// proofHeader announces the binary PNG message that follows it.
type proofHeader struct {
	Seq    uint64     `json:"seq"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Params *grade.Doc `json:"params"`
}

// gradeUpdate is a partial grade change from a client. Nil fields keep
// their current values.
type gradeUpdate struct {
	Name            *string        `json:"name"`
	ColorSpace      *string        `json:"color_space"`
	PreserveMidgray *float32       `json:"preserve_midgray"`
	Shadows         *channelUpdate `json:"shadows"`
	Highlights      *channelUpdate `json:"highlights"`
	ShowCurve       *bool          `json:"show_curve"`
}

type channelUpdate struct {
	Red   *float32 `json:"red"`
	Green *float32 `json:"green"`
	Blue  *float32 `json:"blue"`
}

// State is the server state shared between the HTTP handlers and the
// per-client read loops. The cached header and proof are rebuilt under
// the write lock on every grade change, so connecting clients always
// receive the latest render immediately.
type State struct {
	mu      sync.RWMutex
	src     *render.Frame
	out     *render.Frame
	name    string
	params  tone.Params
	seq     uint64
	header  []byte
	proof   []byte
	clients map[*websocket.Conn]bool

	startTime time.Time
}

// NewState proxies src to preview size, resolves doc (nil means the
// neutral document), and renders the first proof. The curve plot starts
// on regardless of the document; clients toggle it off over the socket.
func NewState(src *render.Frame, doc *grade.Doc) (*State, error) {
	if src == nil {
		return nil, render.ErrNilFrame
	}
	proxy := render.Resize(src, proxyWidth, proxyHeight)
	if proxy == nil {
		return nil, fmt.Errorf("preview: source frame is empty")
	}
	if doc == nil {
		doc = &grade.Doc{}
	}
	params, err := doc.Params()
	if err != nil {
		return nil, err
	}
	params.ShowCurve = true

	s := &State{
		src:       proxy,
		out:       render.NewFrame(proxy.Rect),
		name:      doc.Name,
		params:    params,
		clients:   map[*websocket.Conn]bool{},
		startTime: time.Now(),
	}
	if err := s.rerender(); err != nil {
		return nil, err
	}
	return s, nil
}

// Params returns a snapshot of the current grade parameters.
func (s *State) Params() tone.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Seq returns the sequence number of the latest proof.
func (s *State) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// HandleWS upgrades the connection, sends the current proof, and
// spawns the read loop that applies grade updates from this client.
func (s *State) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	n := len(s.clients)
	s.mu.Unlock()
	log.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", n).Msg("preview client connected")

	s.sendProof(conn)
	go s.readLoop(conn)
}

func (s *State) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("preview client disconnected")
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := s.applyUpdate(data); err != nil {
			log.Warn().Err(err).Msg("rejected grade update")
			s.sendError(conn, err)
		}
	}
}

// applyUpdate merges a JSON grade update into the current parameters.
// Invalid updates leave the state untouched. On success the proof is
// re-rendered and broadcast to every client.
func (s *State) applyUpdate(data []byte) error {
	var u gradeUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("preview: bad grade update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.name
	p := s.params
	if u.Name != nil {
		name = *u.Name
	}
	if u.ColorSpace != nil {
		preset, err := grade.ColorSpace(*u.ColorSpace).Preset()
		if err != nil {
			return err
		}
		p.Preset = preset
	}
	if u.PreserveMidgray != nil {
		p.PreserveMidgray = *u.PreserveMidgray
	}
	mergeChannels(&p.ShadowExp, u.Shadows)
	mergeChannels(&p.HighlightExp, u.Highlights)
	if u.ShowCurve != nil {
		p.ShowCurve = *u.ShowCurve
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.name = name
	s.params = p
	if err := s.rerender(); err != nil {
		return err
	}
	s.broadcast()
	return nil
}

func mergeChannels(dst *[3]float32, u *channelUpdate) {
	if u == nil {
		return
	}
	if u.Red != nil {
		dst[0] = *u.Red
	}
	if u.Green != nil {
		dst[1] = *u.Green
	}
	if u.Blue != nil {
		dst[2] = *u.Blue
	}
}

// rerender rebuilds the cached proof and header. Callers hold mu (the
// constructor calls it before the state is shared).
func (s *State) rerender() error {
	if err := render.Grade(s.out, s.src, s.params); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := frameio.WritePNG(&buf, s.out); err != nil {
		return err
	}
	s.seq++
	s.proof = buf.Bytes()
	header, err := json.Marshal(proofHeader{
		Seq:    s.seq,
		Width:  s.out.Rect.Dx(),
		Height: s.out.Rect.Dy(),
		Params: grade.FromParams(s.name, s.params),
	})
	if err != nil {
		return err
	}
	s.header = header
	return nil
}

// broadcast pushes the cached proof to every client. Callers hold mu
// for writing, which also keeps per-connection writes serialized with
// sendProof and sendError.
func (s *State) broadcast() {
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, s.header); err != nil {
			log.Debug().Err(err).Msg("write proof header")
			continue
		}
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.BinaryMessage, s.proof); err != nil {
			log.Debug().Err(err).Msg("write proof")
		}
	}
}

func (s *State) sendProof(conn *websocket.Conn) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, s.header); err != nil {
		log.Debug().Err(err).Msg("write proof header")
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.BinaryMessage, s.proof); err != nil {
		log.Debug().Err(err).Msg("write proof")
	}
}

func (s *State) sendError(conn *websocket.Conn, cause error) {
	b, err := json.Marshal(map[string]string{"error": cause.Error()})
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// HandleGrade serves the current grade as a YAML document, ready to be
// saved and fed back to the batch CLI.
func (s *State) HandleGrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	d := grade.FromParams(s.name, s.params)
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/x-yaml")
	if err := grade.Encode(w, d); err != nil {
		log.Debug().Err(err).Msg("write grade response")
	}
}

// HandleHealth reports server liveness and proof statistics.
func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := map[string]any{
		"seq":      s.seq,
		"clients":  len(s.clients),
		"width":    s.src.Rect.Dx(),
		"height":   s.src.Rect.Dy(),
		"uptime_s": time.Since(s.startTime).Seconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// WithCORS allows the preview UI to call the HTTP endpoints from any
// origin.
func WithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
