package loaders

import (
	"fmt"
	"image"
	"os"

	// Decoders picked up by image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"golang.org/x/image/draw"
)

// Image is a decoded texture, converted to tightly packed RGBA.
type Image struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

type TextureLoader struct{}

func (tl *TextureLoader) Load(path string) (interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", path, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Redraw into a zero-origin RGBA image so Pix is exactly 4*w*h bytes in
	// the layout the GPU upload expects, whatever the source color model.
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &Image{
		Width:  uint32(width),
		Height: uint32(height),
		Pixels: rgba.Pix,
	}, nil
}
