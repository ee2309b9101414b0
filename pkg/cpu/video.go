package cpu

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"

	"hackvm/pkg/grid"
)

// Screen geometry. Each RAM word in the screen map holds 16 horizontal
// pixels, least significant bit leftmost.
const (
	ScreenWidth   = 512
	ScreenHeight  = 256
	WordsPerRow   = ScreenWidth / 16
	pixelOnColor  = 0x00
	pixelOffColor = 0xFF
)

// Pixel reports whether the screen pixel at (x, y) is set.
func (c *CPU) Pixel(x, y int) bool {
	word := c.RAM[int(AddrScreen)+y*WordsPerRow+x/16]
	return uint16(word)&(1<<(x%16)) != 0
}

// GetFramebufferRGBA decodes the screen memory map into a 512×256
// RGBA8888 byte slice. Set pixels are black, clear pixels white.
func (c *CPU) GetFramebufferRGBA() []byte {
	pixels := make([]byte, ScreenWidth*ScreenHeight*4)

	for i := 0; i < ScreenWords; i++ {
		wordCol, row := grid.GetGridCoords(i, WordsPerRow)
		word := uint16(c.RAM[int(AddrScreen)+i])
		for bit := 0; bit < 16; bit++ {
			shade := byte(pixelOffColor)
			if word&(1<<bit) != 0 {
				shade = pixelOnColor
			}
			base := (row*ScreenWidth + wordCol*16 + bit) * 4
			pixels[base+0] = shade
			pixels[base+1] = shade
			pixels[base+2] = shade
			pixels[base+3] = 0xFF
		}
	}

	return pixels
}

// GetFramebufferImage returns the screen as an *image.RGBA.
func (c *CPU) GetFramebufferImage() *image.RGBA {
	pix := c.GetFramebufferRGBA()
	return &image.RGBA{
		Pix:    pix,
		Stride: ScreenWidth * 4,
		Rect:   image.Rect(0, 0, ScreenWidth, ScreenHeight),
	}
}

// SaveScreenshot writes the screen to filename, as BMP when the name ends
// in ".bmp" and as PNG otherwise.
func (c *CPU) SaveScreenshot(filename string) error {
	img := c.GetFramebufferImage()
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(filename), ".bmp") {
		return bmp.Encode(f, img)
	}
	return png.Encode(f, img)
}
