package hal

import "testing"

func TestRGB565(t *testing.T) {
	if got := RGB565(0xFF, 0xFF, 0xFF); got != 0xFFFF {
		t.Fatalf("RGB565(white) = %#04x, want 0xffff", got)
	}
	if got := RGB565(0xFF, 0, 0); got != 0xF800 {
		t.Fatalf("RGB565(red) = %#04x, want 0xf800", got)
	}
	if got := RGB565(0, 0xFF, 0); got != 0x07E0 {
		t.Fatalf("RGB565(green) = %#04x, want 0x07e0", got)
	}
}

func TestRGB565ToRGBA(t *testing.T) {
	src := []byte{0x00, 0xF8, 0x1F, 0x00}
	dst := make([]byte, 8)
	rgb565ToRGBA(dst, src)

	want := []byte{0xFF, 0, 0, 0xFF, 0, 0, 0xFF, 0xFF}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("rgb565ToRGBA() = % x, want % x", dst, want)
		}
	}
}
