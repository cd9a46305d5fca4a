package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/spherizer/internal/app"
	"github.com/guidoenr/spherizer/internal/config"
	"github.com/guidoenr/spherizer/internal/interaction"
	"github.com/guidoenr/spherizer/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeApp queues parameter patches until flush, like the frame loop does between frames.
type fakeApp struct {
	mu      sync.Mutex
	params  params.Parameters
	pending []app.ParamsPatch
	inputs  []app.PointerInput
}

func newFakeApp() *fakeApp {
	return &fakeApp{params: params.Defaults()}
}

func (f *fakeApp) Status() app.Status {
	return app.Status{FPS: 30, Particles: 6000, Noise: "value"}
}

func (f *fakeApp) Params() params.Parameters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

func (f *fakeApp) PatchParams(patch app.ParamsPatch) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, patch)
	return true
}

func (f *fakeApp) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, patch := range f.pending {
		f.params = patch(f.params)
	}
	f.pending = nil
}

func (f *fakeApp) Send(in app.PointerInput) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return true
}

func (f *fakeApp) received() []app.PointerInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]app.PointerInput(nil), f.inputs...)
}

func TestFrameEncoding(t *testing.T) {
	in := app.FrameData{
		Time:   1.5,
		Count:  2,
		Points: []float32{0.1, -0.2, 4, 1, 0.5, 0.25, 0.8, -0.9, 0.9, 2, 0, 0, 1, 0.3},
	}
	buf := EncodeFrame(in)
	require.Len(t, buf, 8+2*FloatsPerPoint*4)

	out, ok := decodeFrame(buf)
	require.True(t, ok)
	assert.Equal(t, in, out)

	_, ok = decodeFrame(buf[:len(buf)-1])
	assert.False(t, ok)
	_, ok = decodeFrame(nil)
	assert.False(t, ok)
}

func TestFrameEncodingClampsCountToPoints(t *testing.T) {
	buf := EncodeFrame(app.FrameData{Count: 5, Points: make([]float32, FloatsPerPoint)})
	out, ok := decodeFrame(buf)
	require.True(t, ok)
	assert.Equal(t, 1, out.Count)
}

func TestDecodePointer(t *testing.T) {
	in, ok := decodePointer([]byte(`{"type":"click","x":0.25,"y":-0.5}`))
	require.True(t, ok)
	assert.Equal(t, interaction.EventClick, in.Kind)
	assert.Equal(t, 0.25, in.X)
	assert.Equal(t, -0.5, in.Y)
	assert.False(t, in.At.IsZero())

	in, ok = decodePointer([]byte(`{"type":"leave"}`))
	require.True(t, ok)
	assert.Equal(t, interaction.EventLeave, in.Kind)

	_, ok = decodePointer([]byte(`{"type":"wiggle"}`))
	assert.False(t, ok)
	_, ok = decodePointer([]byte(`not json`))
	assert.False(t, ok)
}

func TestParamsEndpointMergesPartialUpdates(t *testing.T) {
	fake := newFakeApp()
	srv := httptest.NewServer(NewServer(fake, Options{}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/params", "application/json", strings.NewReader(`{"chaos":0.9,"accentColor":"#00ff00"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fake.flush()

	got := fake.Params()
	assert.Equal(t, 0.9, got.Chaos)
	assert.Equal(t, "#00ff00", got.AccentColor)
	assert.Equal(t, params.Defaults().ParticleCount, got.ParticleCount)

	resp, err = http.Post(srv.URL+"/api/params", "application/json", strings.NewReader(`{"chaos":`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/params")
	require.NoError(t, err)
	var p params.Parameters
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	resp.Body.Close()
	assert.Equal(t, 0.9, p.Chaos)
}

func TestParamsPostsWithinOneFrameBothLand(t *testing.T) {
	fake := newFakeApp()
	srv := httptest.NewServer(NewServer(fake, Options{}).Handler())
	defer srv.Close()

	for _, body := range []string{`{"chaos":0.9}`, `{"opacity":0.2}`} {
		resp, err := http.Post(srv.URL+"/api/params", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	fake.flush()

	got := fake.Params()
	assert.Equal(t, 0.9, got.Chaos)
	assert.Equal(t, 0.2, got.Opacity)
}

func TestParamsRejectsNonJSONBodies(t *testing.T) {
	fake := newFakeApp()
	srv := httptest.NewServer(NewServer(fake, Options{}).Handler())
	defer srv.Close()

	for _, ct := range []string{"text/plain", "application/x-www-form-urlencoded", ""} {
		resp, err := http.Post(srv.URL+"/api/params", ct, strings.NewReader(`{"chaos":0.9}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode, "content type %q", ct)
	}
	fake.flush()
	assert.Equal(t, params.Defaults().Chaos, fake.Params().Chaos)
}

func TestParamsCapsParticleCount(t *testing.T) {
	fake := newFakeApp()
	srv := httptest.NewServer(NewServer(fake, Options{}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/params", "application/json; charset=utf-8", strings.NewReader(`{"particleCount":2000000000}`))
	require.NoError(t, err)
	var preview params.Parameters
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&preview))
	resp.Body.Close()
	assert.Equal(t, params.MaxParticles, preview.ParticleCount)

	fake.flush()
	assert.Equal(t, params.MaxParticles, fake.Params().ParticleCount)
}

func TestStatusAndNameEndpoints(t *testing.T) {
	srv := httptest.NewServer(NewServer(newFakeApp(), Options{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	var status app.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, 6000, status.Particles)

	resp, err = http.Get(srv.URL + "/api/noise")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	resp.Body.Close()
	assert.Equal(t, []string{"perlin", "simplex", "value"}, names)

	resp, err = http.Get(srv.URL + "/api/quality")
	require.NoError(t, err)
	names = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	resp.Body.Close()
	assert.Equal(t, []string{"balanced", "eco", "high"}, names)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestSaveWritesEffects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spherizer.yaml")
	v := config.NewViper()
	fake := newFakeApp()
	fake.params.Chaos = 0.42

	srv := httptest.NewServer(NewServer(fake, Options{Viper: v, SavePath: path}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/save", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	loaded, err := config.Load(config.NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, 0.42, loaded.Effects.Chaos)
}

func TestSaveDisabledWithoutViper(t *testing.T) {
	srv := httptest.NewServer(NewServer(newFakeApp(), Options{}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/save", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestWebSocketStreamsFramesAndForwardsPointer(t *testing.T) {
	fake := newFakeApp()
	s := NewServer(fake, Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		s.Loop(ctx)
		close(loopDone)
	}()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	frame := app.FrameData{Time: 2, Count: 1, Points: []float32{0, 0, 3, 1, 1, 1, 0.5}}
	s.PublishFrame(frame)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sawFrame, sawStatus bool
	for !sawFrame || !sawStatus {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		switch kind {
		case websocket.BinaryMessage:
			got, ok := decodeFrame(data)
			require.True(t, ok)
			assert.Equal(t, frame, got)
			sawFrame = true
		case websocket.TextMessage:
			var status app.Status
			require.NoError(t, json.Unmarshal(data, &status))
			assert.Equal(t, "value", status.Noise)
			sawStatus = true
		}
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"move","x":0.1,"y":0.2}`)))
	require.Eventually(t, func() bool { return len(fake.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, interaction.EventMove, fake.received()[0].Kind)

	cancel()
	<-loopDone
	assert.Zero(t, s.ClientCount())
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestPublishWithoutClientsIsNoop(t *testing.T) {
	s := NewServer(newFakeApp(), Options{})
	s.PublishFrame(app.FrameData{Count: 1, Points: make([]float32, FloatsPerPoint)})
	assert.Len(t, s.frames, 0)
}
