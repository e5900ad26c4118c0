package preview

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrjoshuak/go-splittone/grade"
	"github.com/mrjoshuak/go-splittone/render"
	"github.com/mrjoshuak/go-splittone/tone"
)

func previewTestFrame(width, height int) *render.Frame {
	f := render.NewFrame(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := float32(x) / float32(width)
			f.SetRGBA(x, y, v, v*0.5, 1-v, 1)
		}
	}
	return f
}

func decodeHeader(t *testing.T, data []byte) proofHeader {
	t.Helper()
	var h proofHeader
	if err := json.Unmarshal(data, &h); err != nil {
		t.Fatalf("header unmarshal error: %v", err)
	}
	return h
}

func TestNewStateInitialRender(t *testing.T) {
	s, err := NewState(previewTestFrame(64, 48), nil)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}

	if s.Seq() != 1 {
		t.Errorf("Seq = %d, want 1", s.Seq())
	}
	p := s.Params()
	if !p.ShowCurve {
		t.Error("The curve plot should start on")
	}
	if p.Preset != tone.PresetDaVinciIntermediate {
		t.Errorf("Preset = %v, want DaVinci Intermediate", p.Preset)
	}

	h := decodeHeader(t, s.header)
	if h.Seq != 1 || h.Width != 64 || h.Height != 48 {
		t.Errorf("header = %+v, want seq 1, 64x48", h)
	}
	if h.Params == nil || h.Params.ColorSpace != "DaVinci Intermediate" {
		t.Errorf("header params = %+v", h.Params)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(s.proof))
	if err != nil {
		t.Fatalf("proof is not a PNG: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("proof size = %dx%d, want 64x48", cfg.Width, cfg.Height)
	}
}

func TestNewStateProxiesSource(t *testing.T) {
	s, err := NewState(previewTestFrame(2560, 4), nil)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}
	if got := s.src.Rect; got.Dx() != 1280 || got.Dy() != 2 {
		t.Errorf("proxy bounds = %v, want 1280x2", got)
	}
	h := decodeHeader(t, s.header)
	if h.Width != 1280 || h.Height != 2 {
		t.Errorf("header size = %dx%d, want 1280x2", h.Width, h.Height)
	}
}

func TestNewStateWithDoc(t *testing.T) {
	doc := &grade.Doc{
		Name:            "Teal",
		ColorSpace:      "Sony S-Log3",
		PreserveMidgray: 0.3,
	}
	s, err := NewState(previewTestFrame(16, 16), doc)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}
	p := s.Params()
	if p.Preset != tone.PresetSonySLog3 {
		t.Errorf("Preset = %v, want Sony S-Log3", p.Preset)
	}
	if p.PreserveMidgray != 0.3 {
		t.Errorf("PreserveMidgray = %v, want 0.3", p.PreserveMidgray)
	}
	if !p.ShowCurve {
		t.Error("The curve plot should start on even when the document leaves it off")
	}
	if h := decodeHeader(t, s.header); h.Params.Name != "Teal" {
		t.Errorf("header name = %q, want Teal", h.Params.Name)
	}
}

func TestNewStateErrors(t *testing.T) {
	if _, err := NewState(nil, nil); !errors.Is(err, render.ErrNilFrame) {
		t.Errorf("nil source error = %v, want ErrNilFrame", err)
	}

	doc := &grade.Doc{ColorSpace: "Rec709"}
	if _, err := NewState(previewTestFrame(8, 8), doc); !errors.Is(err, grade.ErrColorSpace) {
		t.Errorf("bad color space error = %v, want ErrColorSpace", err)
	}
}

func TestApplyUpdate(t *testing.T) {
	s, err := NewState(previewTestFrame(32, 24), nil)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}

	update := `{"preserve_midgray":0.4,"shadows":{"red":1.5},"highlights":{"blue":0.8}}`
	if err := s.applyUpdate([]byte(update)); err != nil {
		t.Fatalf("applyUpdate error: %v", err)
	}

	p := s.Params()
	if p.PreserveMidgray != 0.4 {
		t.Errorf("PreserveMidgray = %v, want 0.4", p.PreserveMidgray)
	}
	if p.ShadowExp != [3]float32{1.5, 1, 1} {
		t.Errorf("ShadowExp = %v, want [1.5 1 1]", p.ShadowExp)
	}
	if p.HighlightExp != [3]float32{1, 1, 0.8} {
		t.Errorf("HighlightExp = %v, want [1 1 0.8]", p.HighlightExp)
	}
	if s.Seq() != 2 {
		t.Errorf("Seq = %d, want 2", s.Seq())
	}
	h := decodeHeader(t, s.header)
	if h.Seq != 2 || h.Params.PreserveMidgray != 0.4 {
		t.Errorf("header = %+v, want seq 2, preserve 0.4", h)
	}
}

func TestApplyUpdateColorSpace(t *testing.T) {
	s, err := NewState(previewTestFrame(16, 16), nil)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}

	if err := s.applyUpdate([]byte(`{"color_space":"17"}`)); err != nil {
		t.Fatalf("index update error: %v", err)
	}
	if p := s.Params(); p.Preset != tone.PresetREDLog3G10 {
		t.Errorf("Preset = %v, want RED Log3G10", p.Preset)
	}

	if err := s.applyUpdate([]byte(`{"color_space":"apple log"}`)); err != nil {
		t.Fatalf("label update error: %v", err)
	}
	if p := s.Params(); p.Preset != tone.PresetAppleLog {
		t.Errorf("Preset = %v, want Apple Log", p.Preset)
	}
	if s.Seq() != 3 {
		t.Errorf("Seq = %d, want 3", s.Seq())
	}
}

func TestApplyUpdateShowCurveToggle(t *testing.T) {
	s, err := NewState(previewTestFrame(16, 16), nil)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}
	if err := s.applyUpdate([]byte(`{"show_curve":false}`)); err != nil {
		t.Fatalf("applyUpdate error: %v", err)
	}
	if s.Params().ShowCurve {
		t.Error("ShowCurve should be off after the toggle")
	}
	if s.Seq() != 2 {
		t.Errorf("Seq = %d, want 2", s.Seq())
	}
}

func TestApplyUpdateRejected(t *testing.T) {
	s, err := NewState(previewTestFrame(16, 16), nil)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}
	before := s.Params()

	tests := []struct {
		name    string
		update  string
		wantErr error
	}{
		{"malformed json", `{`, nil},
		{"preserve out of range", `{"preserve_midgray":2}`, tone.ErrPreserveRange},
		{"exponent out of range", `{"shadows":{"red":9}}`, tone.ErrExponentRange},
		{"unknown color space", `{"color_space":"Rec709"}`, grade.ErrColorSpace},
	}
	for _, tt := range tests {
		err := s.applyUpdate([]byte(tt.update))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}

	if got := s.Params(); got != before {
		t.Errorf("params changed by rejected updates: %+v", got)
	}
	if s.Seq() != 1 {
		t.Errorf("Seq = %d, want 1 after rejected updates", s.Seq())
	}
}

func TestHandleGrade(t *testing.T) {
	doc := &grade.Doc{Name: "Night", ColorSpace: "Canon Log3", PreserveMidgray: 0.2}
	s, err := NewState(previewTestFrame(16, 16), doc)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}

	rec := httptest.NewRecorder()
	s.HandleGrade(rec, httptest.NewRequest(http.MethodGet, "/grade", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got, err := grade.Decode(rec.Body)
	if err != nil {
		t.Fatalf("response is not a grade document: %v", err)
	}
	p, err := got.Params()
	if err != nil {
		t.Fatalf("response params error: %v", err)
	}
	if p != s.Params() {
		t.Errorf("served params = %+v, want %+v", p, s.Params())
	}
	if got.Name != "Night" {
		t.Errorf("served name = %q, want Night", got.Name)
	}

	rec = httptest.NewRecorder()
	s.HandleGrade(rec, httptest.NewRequest(http.MethodPost, "/grade", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s, err := NewState(previewTestFrame(20, 10), nil)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}

	rec := httptest.NewRecorder()
	s.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("health response unmarshal error: %v", err)
	}
	if resp["seq"] != float64(1) {
		t.Errorf("seq = %v, want 1", resp["seq"])
	}
	if resp["clients"] != float64(0) {
		t.Errorf("clients = %v, want 0", resp["clients"])
	}
	if resp["width"] != float64(20) || resp["height"] != float64(10) {
		t.Errorf("size = %vx%v, want 20x10", resp["width"], resp["height"])
	}
}

func TestWithCORS(t *testing.T) {
	called := false
	h := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/grade", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want 200", rec.Code)
	}
	if called {
		t.Error("OPTIONS should not reach the wrapped handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grade", nil))
	if !called {
		t.Error("GET should reach the wrapped handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestWebSocketSession(t *testing.T) {
	s, err := NewState(previewTestFrame(48, 32), nil)
	if err != nil {
		t.Fatalf("NewState error: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	readMessage := func(wantType int) []byte {
		t.Helper()
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if mt != wantType {
			t.Fatalf("message type = %d, want %d", mt, wantType)
		}
		return data
	}

	// On connect the server pushes the current proof.
	h := decodeHeader(t, readMessage(websocket.TextMessage))
	if h.Seq != 1 || h.Width != 48 || h.Height != 32 {
		t.Errorf("header = %+v, want seq 1, 48x32", h)
	}
	proof := readMessage(websocket.BinaryMessage)
	if cfg, err := png.DecodeConfig(bytes.NewReader(proof)); err != nil {
		t.Errorf("proof is not a PNG: %v", err)
	} else if cfg.Width != 48 || cfg.Height != 32 {
		t.Errorf("proof size = %dx%d, want 48x32", cfg.Width, cfg.Height)
	}

	// A grade update triggers a fresh proof.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"preserve_midgray":0.25}`)); err != nil {
		t.Fatalf("write error: %v", err)
	}
	h = decodeHeader(t, readMessage(websocket.TextMessage))
	if h.Seq != 2 || h.Params.PreserveMidgray != 0.25 {
		t.Errorf("updated header = %+v, want seq 2, preserve 0.25", h)
	}
	readMessage(websocket.BinaryMessage)

	// Broken updates come back as error messages, not disconnects.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	var reply map[string]string
	if err := json.Unmarshal(readMessage(websocket.TextMessage), &reply); err != nil {
		t.Fatalf("error reply unmarshal: %v", err)
	}
	if reply["error"] == "" {
		t.Error("error reply should name the problem")
	}

	if s.Seq() != 2 {
		t.Errorf("Seq = %d, want 2", s.Seq())
	}
}
