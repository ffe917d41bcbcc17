package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestNewImageBuffer(t *testing.T) {
	buf, err := NewImageBuffer(4, 3)
	if err != nil {
		t.Fatalf("NewImageBuffer failed: %v", err)
	}
	if len(buf.Pix) != 4*3*BytesPerPixel {
		t.Errorf("Pix length: got %d, want %d", len(buf.Pix), 4*3*BytesPerPixel)
	}
	if buf.Stride() != 16 {
		t.Errorf("Stride: got %d, want 16", buf.Stride())
	}
	if buf.At(0, 0) != (Color{}) {
		t.Error("new buffer should be fully transparent")
	}

	for _, dims := range [][2]int{{0, 1}, {1, 0}, {-1, 5}} {
		if _, err := NewImageBuffer(dims[0], dims[1]); err == nil {
			t.Errorf("NewImageBuffer(%d, %d) should fail", dims[0], dims[1])
		}
	}
}

func TestImageBuffer_Validate(t *testing.T) {
	tests := []struct {
		name    string
		buf     *ImageBuffer
		wantErr bool
	}{
		{"valid", &ImageBuffer{Width: 2, Height: 2, Pix: make([]byte, 16)}, false},
		{"short pix", &ImageBuffer{Width: 2, Height: 2, Pix: make([]byte, 15)}, true},
		{"zero width", &ImageBuffer{Width: 0, Height: 2}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buf.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestImageBuffer_CloneIsIndependent(t *testing.T) {
	buf := solidBuffer(t, 3, 3, Color{10, 20, 30, 255})
	clone := buf.Clone()
	if !clone.Equal(buf) {
		t.Fatal("clone should equal original")
	}

	clone.Set(1, 1, Color{1, 2, 3, 4})
	if buf.At(1, 1) != (Color{10, 20, 30, 255}) {
		t.Error("modifying clone changed the original")
	}
	if clone.Equal(buf) {
		t.Error("modified clone should differ from original")
	}
}

func TestImageBuffer_SetOutOfRange(t *testing.T) {
	buf := solidBuffer(t, 2, 2, Color{0, 0, 0, 255})
	before := buf.Clone()
	buf.Set(-1, 0, Color{255, 255, 255, 255})
	buf.Set(2, 0, Color{255, 255, 255, 255})
	buf.Set(0, 5, Color{255, 255, 255, 255})
	if !buf.Equal(before) {
		t.Error("out-of-range Set modified the buffer")
	}
	if buf.At(9, 9) != (Color{}) {
		t.Error("out-of-range At should return the zero color")
	}
}

func TestImageBuffer_Opaque(t *testing.T) {
	buf := solidBuffer(t, 2, 2, Color{0, 0, 0, 255})
	if !buf.Opaque() {
		t.Error("solid buffer should be opaque")
	}
	buf.Set(1, 1, Color{0, 0, 0, 254})
	if buf.Opaque() {
		t.Error("buffer with a translucent pixel should not be opaque")
	}
}

func TestFromImage_Coercion(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 0, color.Gray{Y: 100})

	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{
		color.RGBA{0, 0, 0, 255},
		color.RGBA{0, 128, 255, 255},
	})
	pal.SetColorIndex(1, 0, 1)

	deep := image.NewNRGBA64(image.Rect(0, 0, 2, 2))
	draw.Draw(deep, deep.Bounds(), image.NewUniform(color.NRGBA64{A: 0xFFFF}), image.Point{}, draw.Src)
	deep.SetNRGBA64(1, 0, color.NRGBA64{R: 0xFFFF, G: 0x8080, B: 0, A: 0xFFFF})

	tests := []struct {
		name string
		img  image.Image
		want Color
	}{
		{"gray gains opaque alpha", gray, Color{100, 100, 100, 255}},
		{"paletted expands", pal, Color{0, 128, 255, 255}},
		{"16-bit reduces to 8-bit", deep, Color{255, 128, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := FromImage(tt.img)
			if err != nil {
				t.Fatalf("FromImage failed: %v", err)
			}
			if err := buf.Validate(); err != nil {
				t.Fatalf("invalid buffer: %v", err)
			}
			if got := buf.At(1, 0); got != tt.want {
				t.Errorf("pixel (1,0): got %+v, want %+v", got, tt.want)
			}
			if got := buf.At(0, 1); got.A != 255 {
				t.Errorf("pixel (0,1) alpha: got %d, want 255", got.A)
			}
		})
	}
}

func TestFromImage_SubImageReorigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	src.SetNRGBA(5, 5, color.NRGBA{1, 2, 3, 4})
	sub := src.SubImage(image.Rect(5, 5, 8, 8))

	buf, err := FromImage(sub)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if buf.Width != 3 || buf.Height != 3 {
		t.Fatalf("dimensions: got %dx%d, want 3x3", buf.Width, buf.Height)
	}
	if got := buf.At(0, 0); got != (Color{1, 2, 3, 4}) {
		t.Errorf("origin pixel: got %+v", got)
	}
}

func TestFromImage_Nil(t *testing.T) {
	if _, err := FromImage(nil); err == nil {
		t.Error("FromImage(nil) should fail")
	}
}

func TestDisplayRoundTrip(t *testing.T) {
	buf, _ := NewImageBuffer(4, 4)
	for i := range buf.Pix {
		buf.Pix[i] = byte(i * 7)
	}

	display := buf.ToDisplay()
	if display.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Fatalf("display bounds: got %v", display.Bounds())
	}
	// A translucent pixel keeps its straight color channels.
	if got := display.NRGBAAt(0, 0); got != (color.NRGBA{0, 7, 14, 21}) {
		t.Errorf("display pixel: got %+v", got)
	}

	back, err := FromDisplay(display)
	if err != nil {
		t.Fatalf("FromDisplay failed: %v", err)
	}
	if !back.Equal(buf) {
		t.Error("display round trip is not byte-exact")
	}

	display.Pix[0] = 99
	if buf.Pix[0] == 99 {
		t.Error("ToDisplay should copy, not alias")
	}
}

func TestToRGBA_Opaque(t *testing.T) {
	buf := solidBuffer(t, 2, 2, Color{12, 34, 56, 255})
	rgba := buf.ToRGBA()
	if got := rgba.RGBAAt(1, 1); got != (color.RGBA{12, 34, 56, 255}) {
		t.Errorf("ToRGBA pixel: got %+v", got)
	}
}
