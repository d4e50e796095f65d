package canvasrenderer

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/gomono"

	"github.com/ByLCY/codeshape/layout"
)

func sampleResult() *layout.Result {
	lines := []string{"  var x=1;", "", "return (x)"}
	return &layout.Result{Text: strings.Join(lines, "\n") + "\n", Lines: lines}
}

// TestMonospaceAdvance 验证内置字体为等宽字体，CharWidth 与任意字符串的宽度成比例。
func TestMonospaceAdvance(t *testing.T) {
	r := NewRenderer(Options{})
	cw, err := r.CharWidth()
	if err != nil {
		t.Fatalf("CharWidth error: %v", err)
	}
	if cw <= 0 {
		t.Fatalf("invalid char width: %g", cw)
	}
	face, err := r.face()
	if err != nil {
		t.Fatalf("face error: %v", err)
	}
	for _, s := range []string{"iiii", "WWWW", "a+b;"} {
		if diff := math.Abs(face.TextWidth(s) - 4*cw); diff > 1e-6 {
			t.Fatalf("%q width mismatch: got=%g want=%g", s, face.TextWidth(s), 4*cw)
		}
	}
}

func TestLineHeightSpec(t *testing.T) {
	r := NewRenderer(Options{FontSize: 12, LineHeight: layout.ParseLineHeight("1.5x")})
	lh, err := r.LineHeight()
	if err != nil {
		t.Fatalf("LineHeight error: %v", err)
	}
	want := 12 * 1.5 * layout.PtToMm
	if diff := math.Abs(lh - want); diff > 1e-9 {
		t.Fatalf("line height mismatch: got=%g want=%g", lh, want)
	}

	r = NewRenderer(Options{})
	if lh, err = r.LineHeight(); err != nil || lh <= 0 {
		t.Fatalf("font line height should be positive, got %g (%v)", lh, err)
	}
}

func TestRenderPDF(t *testing.T) {
	out, err := NewRenderer(Options{}).Render(sampleResult())
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", out[:min(len(out), 16)])
	}
}

// TestRenderPNGPageFitsBlock 验证页面宽度等于最长行的字符数乘以字符宽度再加两侧边距。
func TestRenderPNGPageFitsBlock(t *testing.T) {
	r := NewRenderer(Options{Format: FormatPNG, Margin: 5, Resolution: 2})
	out, err := r.Render(sampleResult())
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	cw, _ := r.CharWidth()
	wantPx := (10*cw + 2*5) * 2
	if diff := math.Abs(float64(img.Bounds().Dx()) - wantPx); diff > 1.5 {
		t.Fatalf("page width mismatch: got=%dpx want≈%gpx", img.Bounds().Dx(), wantPx)
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer(Options{})
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("nil result should fail")
	}
	if _, err := r.Render(&layout.Result{}); err == nil {
		t.Fatalf("empty result should fail")
	}
	if _, err := NewRenderer(Options{Format: "svg"}).Render(sampleResult()); err == nil {
		t.Fatalf("unsupported format should fail")
	}
}

func TestFontSources(t *testing.T) {
	r := NewRenderer(Options{
		Font:  "built-in:mono",
		Fonts: map[string]Resource{"mono": {Bytes: gomono.TTF}},
	})
	if _, err := r.CharWidth(); err != nil {
		t.Fatalf("built-in font should load: %v", err)
	}

	if _, err := NewRenderer(Options{Font: "built-in:missing"}).CharWidth(); err == nil {
		t.Fatalf("missing built-in font should fail")
	}
	if _, err := NewRenderer(Options{Font: "fonts/mono.ttf"}).CharWidth(); err == nil {
		t.Fatalf("relative path without base dir should fail")
	}
	if _, err := NewRenderer(Options{Font: "embed:Inter-Regular"}).CharWidth(); err == nil {
		t.Fatalf("unknown embedded font should fail")
	}
}
