package cpu

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func TestPixel(t *testing.T) {
	c := NewCPU()
	c.RAM[AddrScreen] = 1        // (0, 0)
	c.RAM[AddrScreen+1] = -32768 // bit 15 of word 1: (31, 0)
	c.RAM[AddrScreen+32] = 4     // row 1, bit 2: (2, 1)

	tests := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{1, 0, false},
		{31, 0, true},
		{16, 0, false},
		{2, 1, true},
		{2, 0, false},
	}
	for _, tc := range tests {
		if got := c.Pixel(tc.x, tc.y); got != tc.want {
			t.Errorf("Pixel(%d, %d) = %v; want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestGetFramebufferRGBA(t *testing.T) {
	c := NewCPU()
	c.RAM[AddrScreen+32*3+2] = 0x0003 // row 3, x = 32, 33

	pixels := c.GetFramebufferRGBA()
	if len(pixels) != ScreenWidth*ScreenHeight*4 {
		t.Fatalf("framebuffer size: expected %d, got %d", ScreenWidth*ScreenHeight*4, len(pixels))
	}

	check := func(x, y int, shade byte) {
		base := (y*ScreenWidth + x) * 4
		if pixels[base] != shade || pixels[base+1] != shade || pixels[base+2] != shade || pixels[base+3] != 0xFF {
			t.Errorf("pixel (%d,%d): expected shade 0x%02X, got (%d,%d,%d,%d)",
				x, y, shade, pixels[base], pixels[base+1], pixels[base+2], pixels[base+3])
		}
	}
	check(32, 3, 0x00)
	check(33, 3, 0x00)
	check(34, 3, 0xFF)
	check(31, 3, 0xFF)
	check(0, 0, 0xFF)
}

func TestGetFramebufferImage(t *testing.T) {
	c := NewCPU()
	img := c.GetFramebufferImage()
	if img.Rect.Dx() != ScreenWidth || img.Rect.Dy() != ScreenHeight {
		t.Errorf("image size: expected %dx%d, got %dx%d", ScreenWidth, ScreenHeight, img.Rect.Dx(), img.Rect.Dy())
	}
	if img.Stride != ScreenWidth*4 {
		t.Errorf("image stride: expected %d, got %d", ScreenWidth*4, img.Stride)
	}
}

func TestSaveScreenshot(t *testing.T) {
	c := NewCPU()
	c.RAM[AddrScreen] = -1
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "shot.png")
	if err := c.SaveScreenshot(pngPath); err != nil {
		t.Fatalf("SaveScreenshot png: %v", err)
	}
	data, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0 {
		t.Errorf("png pixel (0,0): expected black, got r=%d", r)
	}

	bmpPath := filepath.Join(dir, "shot.bmp")
	if err := c.SaveScreenshot(bmpPath); err != nil {
		t.Fatalf("SaveScreenshot bmp: %v", err)
	}
	data, err = os.ReadFile(bmpPath)
	if err != nil {
		t.Fatal(err)
	}
	img, err = bmp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("bmp.Decode: %v", err)
	}
	if img.Bounds().Dx() != ScreenWidth {
		t.Errorf("bmp width: expected %d, got %d", ScreenWidth, img.Bounds().Dx())
	}
	if r, _, _, _ := img.At(20, 0).RGBA(); r == 0 {
		t.Error("bmp pixel (20,0): expected white")
	}
}
