package fractals

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Renderer struct {
	opts RenderOpts
}

func NewRenderer(opts RenderOpts) *Renderer {
	return &Renderer{
		opts: opts,
	}
}

type chunkLowest struct {
	value uint32
	ok    bool
}

// Render draws args into a new image. The image is split into chunks which
// are rendered concurrently in two passes: the first computes escape counts,
// the second redraws them normalized against the lowest count.
func (r *Renderer) Render(ctx context.Context, args RenderArgs) (*RenderResult, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	total := args.PixelCount()

	img := image.NewRGBA(image.Rect(0, 0, int(args.Width), int(args.Height)))
	if r.opts.Background != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)
	}
	results := make([]int32, total)

	batch := r.opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize(total)
	}
	chunks := PlanChunks(total, batch)
	lows := make([]chunkLowest, len(chunks))

	err := r.forEachChunk(ctx, 1, chunks, img.Pix, func(i int, c Chunk) (chunkLowest, error) {
		lowest, ok, err := RenderChunk(img.Pix, results, args, c.Start, c.Amount)
		if err != nil {
			return chunkLowest{}, fmt.Errorf("pass 1 over chunk %s: %w", c, err)
		}
		lows[i] = chunkLowest{value: lowest, ok: ok}
		return lows[i], nil
	})
	if err != nil {
		return nil, err
	}

	result := &RenderResult{
		Image:   img,
		Results: results,
		Chunks:  len(chunks),
	}

	for _, l := range lows {
		if l.ok && (!result.HasLowest || l.value < result.Lowest) {
			result.Lowest = l.value
			result.HasLowest = true
		}
	}

	if !result.HasLowest {
		log.Printf("[renderer] no pixel escaped within %d iterations, skipping second pass", args.MaxIterations)
	} else {
		err = r.forEachChunk(ctx, 2, chunks, img.Pix, func(i int, c Chunk) (chunkLowest, error) {
			lowest := chunkLowest{value: result.Lowest, ok: true}
			if r.opts.Normalize == NormalizePerChunk {
				lowest = lows[i]
			}
			if !lowest.ok {
				return lowest, nil
			}

			if err := NormalizeChunk(img.Pix, results, args, c.Start, c.Amount, lowest.value); err != nil {
				return chunkLowest{}, fmt.Errorf("pass 2 over chunk %s: %w", c, err)
			}
			return lowest, nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, v := range results {
		if v < 0 {
			result.Members++
		}
	}
	result.Elapsed = time.Since(start)

	return result, nil
}

// forEachChunk runs fn over every chunk with at most Concurrency chunks in
// flight. Cancelling ctx stops further chunks from being started; chunks
// already running finish their range.
func (r *Renderer) forEachChunk(ctx context.Context, pass int, chunks []Chunk, pix []byte, fn func(int, Chunk) (chunkLowest, error)) error {
	concurrency := r.opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var completed atomic.Int64
	for i, c := range chunks {
		if gctx.Err() != nil {
			break
		}

		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			lowest, err := fn(i, c)
			if err != nil {
				return err
			}

			done := completed.Add(1)
			if r.opts.OnChunk != nil {
				r.opts.OnChunk(ChunkEvent{
					Pass:      pass,
					Chunk:     c,
					Pixels:    pix[c.Start*4 : (c.Last()+1)*4],
					Lowest:    lowest.value,
					HasLowest: lowest.ok,
					Completed: int(done),
					Total:     len(chunks),
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
