package world

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

const previewScale = 3 // world units per pixel

// Base colours per tag; each block is jittered around its base.
var tagColors = map[Tag]color.NRGBA{
	TagGround: {R: 212, G: 123, B: 74, A: 255},
	TagTrunk:  {R: 100, G: 50, B: 20, A: 255},
	TagLeaf:   {R: 50, G: 200, B: 30, A: 255},
}

var previewSky = color.NRGBA{R: 80, G: 154, B: 204, A: 255}

// SaveWindowPreview renders a flat PNG of every object in the collection
// whose anchor column lies in [minX, maxX].
func SaveWindowPreview(c *Collection, minX, maxX, blockSize int, path string) error {
	if c == nil {
		return fmt.Errorf("collection is nil")
	}
	if maxX < minX {
		return fmt.Errorf("invalid preview range [%d, %d]", minX, maxX)
	}

	blocks := append(c.Blocks(LayerGround), c.Blocks(LayerTrunk)...)
	leaves := c.Leaves()

	minY, maxY := math.MaxInt, math.MinInt
	for _, block := range blocks {
		if block.Column() < minX || block.Column() > maxX {
			continue
		}
		if block.Y < minY {
			minY = block.Y
		}
		if block.Y+blockSize > maxY {
			maxY = block.Y + blockSize
		}
	}
	for _, leaf := range leaves {
		y := int(leaf.origin.Y())
		if y < minY {
			minY = y
		}
	}
	if minY > maxY {
		minY, maxY = 0, blockSize
	}

	width := (maxX-minX+blockSize)/previewScale + 1
	height := (maxY-minY)/previewScale + 1
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{previewSky}, image.Point{}, draw.Src)

	fill := func(x, y, w, h float64, col color.NRGBA) {
		rect := image.Rect(
			int(math.Floor((x-float64(minX))/previewScale)),
			int(math.Floor((y-float64(minY))/previewScale)),
			int(math.Ceil((x+w-float64(minX))/previewScale)),
			int(math.Ceil((y+h-float64(minY))/previewScale)),
		)
		draw.Draw(img, rect.Intersect(img.Bounds()), &image.Uniform{col}, image.Point{}, draw.Over)
	}

	size := float64(blockSize)
	for _, block := range blocks {
		if block.Column() < minX || block.Column() > maxX {
			continue
		}
		fill(float64(block.X), float64(block.Y), size, size, approximateColor(tagColors[block.Tag()], block.X, block.Y))
	}
	for _, leaf := range leaves {
		if leaf.Column() < minX || leaf.Column() > maxX {
			continue
		}
		body := leaf.Body()
		col := approximateColor(tagColors[TagLeaf], int(leaf.origin.X()), int(leaf.origin.Y()))
		col.A = uint8(clamp(body.Opacity, 0, 1) * 255)
		if col.A == 0 {
			continue
		}
		fill(body.Position.X(), body.Position.Y(), body.Width, body.Height, col)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preview directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// approximateColor shifts each channel by up to ±10 using a hash of the cell
// so the same cell always gets the same shade.
func approximateColor(base color.NRGBA, x, y int) color.NRGBA {
	h := uint32(x*374761393 + y*668265263)
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	jitter := func(v uint8, shift uint) uint8 {
		d := int((h>>shift)&0xFF)%21 - 10
		return uint8(clamp(float64(int(v)+d), 0, 255))
	}
	return color.NRGBA{R: jitter(base.R, 0), G: jitter(base.G, 8), B: jitter(base.B, 16), A: base.A}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
