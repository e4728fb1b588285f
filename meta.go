package fractals

import (
	"fmt"
	"image"
	"image/color"
	"time"
)

// RenderMeta is persisted between builds so unchanged views can be skipped.
type RenderMeta struct {
	Views map[string]string `json:"views"`
}

// Normalization selects the minimum used by the second pass.
type Normalization int

const (
	// NormalizeGlobal re-bases every chunk against the lowest escape count in
	// the whole image.
	NormalizeGlobal Normalization = iota
	// NormalizePerChunk re-bases every chunk against its own lowest escape count.
	NormalizePerChunk
)

func (n Normalization) String() string {
	switch n {
	case NormalizeGlobal:
		return "global"
	case NormalizePerChunk:
		return "chunk"
	}
	return fmt.Sprintf("normalization(%d)", int(n))
}

func ParseNormalization(s string) (Normalization, error) {
	switch s {
	case "", "global":
		return NormalizeGlobal, nil
	case "chunk":
		return NormalizePerChunk, nil
	}
	return 0, fmt.Errorf("unknown normalization %q", s)
}

type RenderOpts struct {
	Concurrency int
	BatchSize   int
	Normalize   Normalization
	Background  color.Color

	// OnChunk is called from the goroutine that rendered a chunk once a pass
	// over it has finished.
	OnChunk func(ChunkEvent)
}

// ChunkEvent reports a finished pass over one chunk.
type ChunkEvent struct {
	Pass  int
	Chunk Chunk

	// Pixels is the chunk's RGBA bytes inside the image buffer. It is only
	// valid for the duration of the callback.
	Pixels []byte

	Lowest    uint32
	HasLowest bool

	// Completed is the number of chunks finished in this pass so far,
	// including this one, out of Total.
	Completed int
	Total     int
}

type RenderResult struct {
	Image   *image.RGBA
	Results []int32

	Lowest    uint32
	HasLowest bool

	Chunks  int
	Members int
	Elapsed time.Duration
}
