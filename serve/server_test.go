package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/b1naryth1ef/fractals"
	"github.com/b1naryth1ef/fractals/web"
)

func testConfig() *fractals.Config {
	return &fractals.Config{
		Concurrency: 2,
		Views: []*fractals.ViewConfigBlock{
			{
				Name:          "small",
				Start:         []float64{-2, 1.5},
				End:           []float64{1, -1.5},
				Width:         40,
				Height:        30,
				MaxIterations: 80,
				BatchPixels:   200,
			},
		},
	}
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp, body
}

func TestServer_Pages(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()))
	defer srv.Close()

	resp, body := get(t, srv, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "small") {
		t.Error("index does not list the view")
	}

	resp, _ = get(t, srv, "/static/js/viewer.js")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /static/js/viewer.js = %d", resp.StatusCode)
	}

	resp, body = get(t, srv, "/views")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /views = %d", resp.StatusCode)
	}
	var views []web.ViewData
	if err := json.Unmarshal(body, &views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	if len(views) != 1 || views[0].Name != "small" || views[0].Image != "views/small.png" {
		t.Errorf("views = %+v", views)
	}
	if views[0].Width != 40 || views[0].Height != 30 || views[0].MaxIterations != 80 {
		t.Errorf("view size = %+v", views[0])
	}
}

func TestServer_ViewImage(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()))
	defer srv.Close()

	tests := []struct {
		path       string
		status     int
		wantWidth  int
		wantHeight int
	}{
		{"/views/small.png", http.StatusOK, 40, 30},
		{"/views/small.png?width=20", http.StatusOK, 20, 15},
		{"/views/small.png?width=0", http.StatusBadRequest, 0, 0},
		{"/views/small.png?width=abc", http.StatusBadRequest, 0, 0},
		{"/views/small.png?width=5000", http.StatusBadRequest, 0, 0},
		{"/views/unknown.png", http.StatusNotFound, 0, 0},
		{"/views/small.jpg", http.StatusNotFound, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv, tt.path)
			if resp.StatusCode != tt.status {
				t.Fatalf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}

			img, err := png.Decode(bytes.NewReader(body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantWidth || b.Dy() != tt.wantHeight {
				t.Errorf("image = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestServer_Stream(t *testing.T) {
	config := testConfig()
	srv := httptest.NewServer(NewServer(config))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?view=small", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.CloseNow()
	c.SetReadLimit(1 << 24)

	typ, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame frameMessage
	if typ != websocket.MessageText || json.Unmarshal(data, &frame) != nil || frame.Type != "frame" {
		t.Fatalf("first message = %s", data)
	}
	if frame.Width != 40 || frame.Height != 30 {
		t.Errorf("frame = %+v", frame)
	}

	pix := make([]byte, frame.Width*frame.Height*4)
	passes := map[int]int{}
	var done doneMessage
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}

		if typ == websocket.MessageBinary {
			msg, err := decodeChunk(data)
			if err != nil {
				t.Fatalf("decodeChunk: %v", err)
			}
			copy(pix[msg.Start*4:], msg.Pixels)
			passes[msg.Pass]++
			continue
		}

		if err := json.Unmarshal(data, &done); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if done.Type != "done" {
			t.Fatalf("message = %s, want done", data)
		}
		break
	}

	view := config.View("small")
	args, err := view.Args()
	if err != nil {
		t.Fatalf("Args: %v", err)
	}
	want, err := fractals.NewRenderer(view.RenderOpts(config)).Render(context.Background(), args)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !bytes.Equal(pix, want.Image.Pix) {
		t.Error("streamed image differs from a direct render")
	}
	if done.Chunks != want.Chunks || done.Lowest != want.Lowest || done.Members != want.Members {
		t.Errorf("done = %+v, want %d chunks lowest %d members %d", done, want.Chunks, want.Lowest, want.Members)
	}
	if passes[1] != want.Chunks || passes[2] != want.Chunks {
		t.Errorf("passes = %v, want %d chunks each", passes, want.Chunks)
	}
}

func TestServer_StreamUnknownView(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()))
	defer srv.Close()

	resp, _ := get(t, srv, "/ws?view=nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /ws?view=nope = %d, want 404", resp.StatusCode)
	}
}

func TestChunkMessage(t *testing.T) {
	pixels := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	buf := encodeChunk(2, fractals.Chunk{Start: 70000, Amount: 1}, pixels)

	if len(buf) != chunkHeaderSize+len(pixels) {
		t.Fatalf("len = %d", len(buf))
	}

	msg, err := decodeChunk(buf)
	if err != nil {
		t.Fatalf("decodeChunk: %v", err)
	}
	if msg.Pass != 2 || msg.Start != 70000 || msg.Count != 2 || !bytes.Equal(msg.Pixels, pixels) {
		t.Errorf("decodeChunk = %+v", msg)
	}

	if _, err := decodeChunk(buf[:5]); err == nil {
		t.Error("decodeChunk should reject a short header")
	}
	if _, err := decodeChunk(buf[:len(buf)-1]); err == nil {
		t.Error("decodeChunk should reject a truncated payload")
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

func TestServer_StreamClientGone(t *testing.T) {
	var logs lockedBuffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	config := &fractals.Config{
		Views: []*fractals.ViewConfigBlock{
			{
				Name:          "large",
				Start:         []float64{-2, 1.5},
				End:           []float64{1, -1.5},
				Width:         2000,
				Height:        2000,
				MaxIterations: 5000,
				BatchPixels:   5000,
			},
		},
	}
	srv := httptest.NewServer(NewServer(config))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?view=large", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.SetReadLimit(1 << 24)

	if _, _, err := c.Read(ctx); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	c.CloseNow()

	// the render is cancelled and reporting the failure to the closed
	// connection fails as well
	for !strings.Contains(logs.String(), "failed to report error for large") {
		select {
		case <-ctx.Done():
			t.Fatalf("log output = %q, want a failed error report", logs.String())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
