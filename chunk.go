package fractals

import (
	"fmt"
)

// Chunk is a contiguous range of pixel indices. The range is inclusive:
// a chunk covers Start through Start+Amount, which is Amount+1 pixels.
type Chunk struct {
	Start  int
	Amount int
}

// Last returns the index of the final pixel in the chunk.
func (c Chunk) Last() int {
	return c.Start + c.Amount
}

// Size returns the number of pixels in the chunk.
func (c Chunk) Size() int {
	return c.Amount + 1
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%d, %d]", c.Start, c.Last())
}

// minBatchSize is the smallest number of pixels worth handing to a worker.
const minBatchSize = 25000

// DefaultBatchSize splits an image into roughly twenty chunks while keeping
// each chunk at least minBatchSize pixels large.
func DefaultBatchSize(total int) int {
	batch := max(total/20, minBatchSize)
	if batch > total {
		batch = total
	}
	return batch
}

// PlanChunks splits total pixels into disjoint chunks of at most batch
// pixels, covering every index exactly once.
func PlanChunks(total, batch int) []Chunk {
	if total <= 0 {
		return nil
	}
	if batch <= 0 || batch > total {
		batch = total
	}

	chunks := make([]Chunk, 0, (total+batch-1)/batch)
	for start := 0; start < total; start += batch {
		size := min(batch, total-start)
		chunks = append(chunks, Chunk{Start: start, Amount: size - 1})
	}
	return chunks
}

func checkChunk(img []byte, results []int32, args RenderArgs, start, amount int) error {
	if args.Width == 0 || args.Height == 0 {
		return fmt.Errorf("%w: image size %d x %d", ErrDegenerateViewport, args.Width, args.Height)
	}

	if start < 0 || amount < 0 {
		return fmt.Errorf("%w: start %d amount %d", ErrOutOfBounds, start, amount)
	}

	last := start + amount
	if last >= args.PixelCount() {
		return fmt.Errorf("%w: index %d past image of %d pixels", ErrOutOfBounds, last, args.PixelCount())
	}
	if last >= len(results) {
		return fmt.Errorf("%w: index %d past results buffer of %d", ErrOutOfBounds, last, len(results))
	}
	if (last+1)*4 > len(img) {
		return fmt.Errorf("%w: index %d past image buffer of %d bytes", ErrOutOfBounds, last, len(img))
	}
	return nil
}

func pixelOffset(p Pixel, width uint32) int {
	return ((int(width) * int(p.Y)) + int(p.X)) * 4
}

// RenderChunk runs the first pass over the inclusive range
// [start, start+amount]. Every pixel's escape count is stored in results
// (-1 for members) and a provisional colour is drawn into img. Both buffers
// are indexed over the whole image, with img holding 4 bytes per pixel.
//
// The lowest escape count in the chunk is returned, with ok == false when no
// pixel escaped. Nothing is written when the range does not fit the image or
// the buffers.
func RenderChunk(img []byte, results []int32, args RenderArgs, start, amount int) (lowest uint32, ok bool, err error) {
	if err := checkChunk(img, results, args, start, amount); err != nil {
		return 0, false, err
	}

	for count := 0; count <= amount; count++ {
		index := start + count
		pixel := IndexToPixel(index, args.Width)
		c := PixelToComplex(pixel, args)

		n, escaped := CheckInMandelbrot(c.Real, c.Imag, args.MaxIterations)
		if escaped {
			results[index] = int32(n)
			if !ok || n < lowest {
				lowest = n
				ok = true
			}
		} else {
			results[index] = -1
		}

		drawColor(img, pixelOffset(pixel, args.Width), ColorFor(n, escaped, args.MaxIterations))
	}

	return lowest, ok, nil
}

// NormalizeChunk runs the second pass over the same range as RenderChunk.
// Pixels that escaped after more than zero iterations are redrawn with their
// count shifted so that lowest maps to 1. Members, zero counts, and a lowest
// of zero leave the first pass colours in place.
func NormalizeChunk(img []byte, results []int32, args RenderArgs, start, amount int, lowest uint32) error {
	if err := checkChunk(img, results, args, start, amount); err != nil {
		return err
	}
	if lowest == 0 {
		return nil
	}

	for count := 0; count <= amount; count++ {
		index := start + count
		current := results[index]
		if current <= 0 {
			continue
		}

		n := uint32(1)
		if uint32(current) > lowest {
			n = uint32(current) - lowest + 1
		}

		pixel := IndexToPixel(index, args.Width)
		drawColor(img, pixelOffset(pixel, args.Width), ColorFor(n, true, args.MaxIterations))
	}

	return nil
}
