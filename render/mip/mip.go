// Package mip generates texture mip chains on the CPU. Generating the chain
// here instead of on the GPU keeps the sampled results identical across
// backends.
package mip

import (
	"fmt"
	"math/bits"
)

// Level describes one mip level within the chain buffer.
type Level struct {
	Width  int
	Height int
	Offset int
	Size   int
}

// Chain holds all mip levels of a texture in one contiguous buffer. Level
// zero is the original image.
type Chain struct {
	Channels int
	Levels   []Level

	data []byte
}

// Count returns the number of mip levels for a texture of the given size,
// down to and including the final 1x1 level.
func Count(width, height int) int {
	return bits.Len(uint(max(width, height, 1)))
}

// Pixels returns the pixel data of one level.
func (c *Chain) Pixels(level int) []byte {
	l := c.Levels[level]
	return c.data[l.Offset : l.Offset+l.Size]
}

// Build generates the full mip chain for the given image. Each level is a
// 2x2 box filter of the previous one, with edge pixels repeated where a
// dimension is odd. Only single channel and rgba images are supported.
func Build(pixels []byte, width, height, channels int) (*Chain, error) {
	if channels != 1 && channels != 4 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}

	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	if len(pixels) < width*height*channels {
		return nil, fmt.Errorf("pixel data too short: %d bytes for %dx%dx%d",
			len(pixels), width, height, channels)
	}

	count := Count(width, height)

	chain := &Chain{
		Channels: channels,
		Levels:   make([]Level, 0, count),
	}

	// size the buffer upfront so level slices stay valid
	var total int

	w, h := width, height
	for range count {
		total += w * h * channels
		w, h = max(1, w/2), max(1, h/2)
	}

	chain.data = make([]byte, total)

	w, h = width, height
	var offset int

	for range count {
		size := w * h * channels

		chain.Levels = append(chain.Levels, Level{
			Width:  w,
			Height: h,
			Offset: offset,
			Size:   size,
		})

		offset += size
		w, h = max(1, w/2), max(1, h/2)
	}

	copy(chain.Pixels(0), pixels[:width*height*channels])

	for level := 1; level < count; level++ {
		downsample(chain, level)
	}

	return chain, nil
}

// downsample fills level from level-1 by averaging 2x2 blocks.
func downsample(chain *Chain, level int) {
	src := chain.Levels[level-1]
	dst := chain.Levels[level]

	srcPixels := chain.Pixels(level - 1)
	dstPixels := chain.Pixels(level)

	ch := chain.Channels

	for y := range dst.Height {
		// clamp to the source edge when the source dimension is odd
		y0 := min(y*2, src.Height-1)
		y1 := min(y*2+1, src.Height-1)

		for x := range dst.Width {
			x0 := min(x*2, src.Width-1)
			x1 := min(x*2+1, src.Width-1)

			for c := range ch {
				sum := int(srcPixels[(y0*src.Width+x0)*ch+c]) +
					int(srcPixels[(y0*src.Width+x1)*ch+c]) +
					int(srcPixels[(y1*src.Width+x0)*ch+c]) +
					int(srcPixels[(y1*src.Width+x1)*ch+c])

				dstPixels[(y*dst.Width+x)*ch+c] = byte(sum / 4)
			}
		}
	}
}
