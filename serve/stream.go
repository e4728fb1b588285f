package serve

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/b1naryth1ef/fractals"
)

// chunkHeaderSize is the size of the header preceding the RGBA bytes of a
// binary chunk message: pass (1 byte), start index and pixel count (4 bytes
// each, big endian).
const chunkHeaderSize = 9

type frameMessage struct {
	Type          string `json:"type"`
	View          string `json:"view"`
	Width         uint32 `json:"width"`
	Height        uint32 `json:"height"`
	MaxIterations uint32 `json:"maxIterations"`
	Background    string `json:"background"`
}

type doneMessage struct {
	Type      string `json:"type"`
	Lowest    uint32 `json:"lowest"`
	HasLowest bool   `json:"hasLowest"`
	Chunks    int    `json:"chunks"`
	Members   int    `json:"members"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// chunkMessage is a decoded binary chunk message.
type chunkMessage struct {
	Pass   int
	Start  int
	Count  int
	Pixels []byte
}

func encodeChunk(pass int, chunk fractals.Chunk, pixels []byte) []byte {
	buf := make([]byte, chunkHeaderSize+len(pixels))
	buf[0] = byte(pass)
	binary.BigEndian.PutUint32(buf[1:5], uint32(chunk.Start))
	binary.BigEndian.PutUint32(buf[5:9], uint32(chunk.Size()))
	copy(buf[chunkHeaderSize:], pixels)
	return buf
}

func decodeChunk(buf []byte) (chunkMessage, error) {
	if len(buf) < chunkHeaderSize {
		return chunkMessage{}, errors.New("chunk message too short")
	}

	msg := chunkMessage{
		Pass:   int(buf[0]),
		Start:  int(binary.BigEndian.Uint32(buf[1:5])),
		Count:  int(binary.BigEndian.Uint32(buf[5:9])),
		Pixels: buf[chunkHeaderSize:],
	}
	if len(msg.Pixels) != msg.Count*4 {
		return chunkMessage{}, fmt.Errorf("chunk message carries %d bytes for %d pixels", len(msg.Pixels), msg.Count)
	}
	return msg, nil
}

// streamer forwards finished chunks to a websocket. Chunks finish on many
// goroutines at once, writes are serialized.
type streamer struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	err    error
}

func (s *streamer) sendChunk(ev fractals.ChunkEvent) {
	msg := encodeChunk(ev.Pass, ev.Chunk, ev.Pixels)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}

	if err := s.conn.Write(s.ctx, websocket.MessageBinary, msg); err != nil {
		s.err = err
		s.cancel()
	}
}

func (s *streamer) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wsjson.Write(s.ctx, s.conn, v)
}

// handleStream renders a view and streams both passes chunk by chunk.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	view := s.config.View(r.URL.Query().Get("view"))
	if view == nil {
		http.NotFound(w, r)
		return
	}

	args, err := view.Args()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[serve] websocket accept: %v", err)
		return
	}
	defer c.CloseNow()

	ctx, cancel := context.WithCancel(c.CloseRead(r.Context()))
	defer cancel()

	st := &streamer{conn: c, ctx: ctx, cancel: cancel}

	err = st.writeJSON(frameMessage{
		Type:          "frame",
		View:          view.Name,
		Width:         args.Width,
		Height:        args.Height,
		MaxIterations: args.MaxIterations,
		Background:    fractals.HexColor(s.background),
	})
	if err != nil {
		log.Printf("[serve] failed to send frame for %s: %v", view.Name, err)
		return
	}

	opts := view.RenderOpts(s.config)
	opts.OnChunk = st.sendChunk

	result, err := fractals.NewRenderer(opts).Render(ctx, args)
	if err != nil {
		if st.err != nil {
			err = st.err
		}
		log.Printf("[serve] stream of %s aborted: %v", view.Name, err)
		if err := st.writeJSON(errorMessage{Type: "error", Error: err.Error()}); err != nil {
			log.Printf("[serve] failed to report error for %s: %v", view.Name, err)
		}
		return
	}

	err = st.writeJSON(doneMessage{
		Type:      "done",
		Lowest:    result.Lowest,
		HasLowest: result.HasLowest,
		Chunks:    result.Chunks,
		Members:   result.Members,
		ElapsedMs: result.Elapsed.Milliseconds(),
	})
	if err != nil {
		log.Printf("[serve] failed to finish stream of %s: %v", view.Name, err)
		return
	}

	c.Close(websocket.StatusNormalClosure, "")
}
