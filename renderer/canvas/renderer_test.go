package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"testing"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/memegen/layout"
)

func newTestRenderer(t *testing.T, opts Options) *Renderer {
	t.Helper()
	r, err := NewRendererWithOptions(opts)
	if err != nil {
		t.Fatalf("创建渲染器失败: %v", err)
	}
	return r
}

func grayImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, &image.Uniform{C: color.NRGBA{R: 128, G: 128, B: 128, A: 255}}, image.Point{}, draw.Src)
	return img
}

// diffStats 返回与原图不同的像素所在的最小/最大行，以及白色、黑色像素数量。
func diffStats(before, after *image.NRGBA) (minY, maxY, white, black int) {
	minY, maxY = math.MaxInt, -1
	for y := after.Rect.Min.Y; y < after.Rect.Max.Y; y++ {
		for x := after.Rect.Min.X; x < after.Rect.Max.X; x++ {
			a := after.NRGBAAt(x, y)
			if a == before.NRGBAAt(x, y) {
				continue
			}
			minY = min(minY, y)
			maxY = max(maxY, y)
			if a.R > 240 && a.G > 240 && a.B > 240 {
				white++
			}
			if a.R < 40 && a.G < 40 && a.B < 40 {
				black++
			}
		}
	}
	return
}

func TestRenderBlankCaptionIsNoop(t *testing.T) {
	r := newTestRenderer(t, Options{})
	params := layout.Derive(300, 200)
	anchor := layout.Anchor{X: 150, Y: 100, Align: layout.AlignCenter, Baseline: layout.BaselineMiddle}
	for _, text := range []string{"", " ", "\t\n  "} {
		img := grayImage(300, 200)
		before := bytes.Clone(img.Pix)
		r.Render(img, anchor, text, params)
		if !bytes.Equal(before, img.Pix) {
			t.Fatalf("blank caption %q modified the surface", text)
		}
	}
}

func TestRenderDrawsOutlineAndFill(t *testing.T) {
	r := newTestRenderer(t, Options{})
	params := layout.Derive(400, 200)
	img := grayImage(400, 200)
	before := grayImage(400, 200)

	r.Render(img, layout.Anchor{X: 200, Y: 100, Align: layout.AlignCenter, Baseline: layout.BaselineMiddle}, "Hello", params)

	_, maxY, white, black := diffStats(before, img)
	if maxY < 0 {
		t.Fatalf("expected caption to change the surface")
	}
	if white == 0 {
		t.Fatalf("expected white fill pixels")
	}
	if black == 0 {
		t.Fatalf("expected black outline pixels")
	}
}

func TestRenderRespectsBaselines(t *testing.T) {
	r := newTestRenderer(t, Options{})
	const w, h = 300, 300
	params := layout.Derive(w, h)
	slack := int(math.Ceil(params.StrokeWidthPx)) + 2
	anchors := layout.Layout(2, w, h)

	top := grayImage(w, h)
	r.Render(top, anchors[0], "TOP", params)
	minY, maxY, _, _ := diffStats(grayImage(w, h), top)
	if minY < int(layout.EdgeMarginPx)-slack {
		t.Fatalf("top caption starts above margin: minY=%d", minY)
	}
	if maxY > h/2 {
		t.Fatalf("top caption reaches lower half: maxY=%d", maxY)
	}

	bottom := grayImage(w, h)
	r.Render(bottom, anchors[1], "BOTTOM", params)
	minY, maxY, _, _ = diffStats(grayImage(w, h), bottom)
	if maxY > h-int(layout.EdgeMarginPx)+slack {
		t.Fatalf("bottom caption goes below margin: maxY=%d", maxY)
	}
	if minY < h/2 {
		t.Fatalf("bottom caption reaches upper half: minY=%d", minY)
	}
}

func TestRenderHasNoCarriedState(t *testing.T) {
	r := newTestRenderer(t, Options{})
	anchor := layout.Anchor{X: 100, Y: 50, Align: layout.AlignCenter, Baseline: layout.BaselineMiddle}
	params := layout.Derive(200, 100)

	fresh := grayImage(200, 100)
	r.Render(fresh, anchor, "SAME", params)

	// 先用完全不同的样式渲染一次，再重复上面的调用，结果必须一致
	odd := params
	odd.FontSizePx = 60
	odd.StrokeWidthPx = 9
	odd.FillColor = layout.Color{R: 255, A: 255}
	r.Render(grayImage(200, 100), anchor, "OTHER", odd)

	again := grayImage(200, 100)
	r.Render(again, anchor, "SAME", params)
	if !bytes.Equal(fresh.Pix, again.Pix) {
		t.Fatalf("render output depends on a previous call")
	}
}

func TestMeasureTextUppercases(t *testing.T) {
	r := newTestRenderer(t, Options{})
	params := layout.Derive(500, 500)
	lower := r.MeasureText("top text", params)
	upper := r.MeasureText("TOP TEXT", params)
	if lower <= 0 || math.Abs(lower-upper) > 1e-9 {
		t.Fatalf("measure should be case-insensitive: lower=%g upper=%g", lower, upper)
	}
	if bigger := r.MeasureText("TOP TEXT", layout.Derive(1000, 1000)); bigger <= upper {
		t.Fatalf("larger font should measure wider: %g <= %g", bigger, upper)
	}
}

func TestNormalizeCaption(t *testing.T) {
	cases := map[string]string{
		"top text": "TOP TEXT",
		"straße":   "STRASSE",
		"a\r\nb":   "A\nB",
		"déjà vu":  "DÉJÀ VU",
	}
	for in, want := range cases {
		got, ok := normalizeCaption(in)
		if !ok || got != want {
			t.Fatalf("normalizeCaption(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := normalizeCaption(" \t"); ok {
		t.Fatalf("blank caption should be skipped")
	}
}

func TestLinesWrapWithinBudget(t *testing.T) {
	r := newTestRenderer(t, Options{Wrap: WrapOptions{Enabled: true}})
	params := layout.Derive(300, 300)
	face := r.face(params.FontSizePx, params.FillColor)
	text := strings.ToUpper("when the code works on the first try and you do not know why")

	lines := r.lines(text, face, 300)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %q", lines)
	}
	limit := 300 * defaultMaxWidthRatio
	for i, ln := range lines {
		if w := textWidthPx(face, ln); w-limit > 1e-6 {
			t.Fatalf("line %d %q width %g exceeds %g", i, ln, w, limit)
		}
	}

	plain := newTestRenderer(t, Options{})
	if got := plain.lines(text, face, 300); len(got) != 1 {
		t.Fatalf("wrapping disabled should keep a single line, got %d", len(got))
	}
	if got := plain.lines("FOO\n\nBAR", face, 300); len(got) != 3 || got[1] != "" {
		t.Fatalf("explicit newlines should be kept: %q", got)
	}
}

func TestStrokeHugsGlyphOutline(t *testing.T) {
	r := newTestRenderer(t, Options{})
	params := layout.Derive(200, 200)
	params.FontSizePx = 80
	params.StrokeWidthPx = 8
	anchor := layout.Anchor{X: 100, Y: 100, Align: layout.AlignCenter, Baseline: layout.BaselineMiddle}
	bg := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	isWhite := func(c color.NRGBA) bool { return c.R > 240 && c.G > 240 && c.B > 240 }
	isBlack := func(c color.NRGBA) bool { return c.R < 40 && c.G < 40 && c.B < 40 }

	img := grayImage(200, 200)
	r.Render(img, anchor, "I", params)

	// 竖笔画中部一行：白色填充两侧应紧贴着半个描边宽度的黑色轮廓，再往外是原图
	const y = 100
	left, right := -1, -1
	for x := 0; x < 200; x++ {
		if isWhite(img.NRGBAAt(x, y)) {
			if left < 0 {
				left = x
			}
			right = x
		}
	}
	if left < 0 {
		t.Fatalf("expected white fill on row %d", y)
	}
	band := int(math.Ceil(params.StrokeWidthPx/2)) + 1
	hasBlack := func(from, to int) bool {
		for x := from; x <= to; x++ {
			if isBlack(img.NRGBAAt(x, y)) {
				return true
			}
		}
		return false
	}
	if !hasBlack(left-band, left-1) {
		t.Fatalf("no outline within %dpx left of fill at x=%d", band, left)
	}
	if !hasBlack(right+1, right+band) {
		t.Fatalf("no outline within %dpx right of fill at x=%d", band, right)
	}
	if got := img.NRGBAAt(left-band-2, y); got != bg {
		t.Fatalf("outline extends too far left: %v at x=%d", got, left-band-2)
	}
	if got := img.NRGBAAt(right+band+2, y); got != bg {
		t.Fatalf("outline extends too far right: %v at x=%d", got, right+band+2)
	}

	// 描边宽度为 0 时只有填充
	params.StrokeWidthPx = 0
	plain := grayImage(200, 200)
	r.Render(plain, anchor, "I", params)
	if _, _, white, black := diffStats(grayImage(200, 200), plain); white == 0 || black != 0 {
		t.Fatalf("zero stroke: white=%d black=%d", white, black)
	}
}

func TestParseFontStyle(t *testing.T) {
	cases := map[string]canvas.FontStyle{
		"bold":        canvas.FontBold,
		"Bold Italic": canvas.FontBold | canvas.FontItalic,
		"regular":     canvas.FontRegular,
		"semibold":    canvas.FontSemiBold,
	}
	for in, want := range cases {
		if got := parseFontStyle(in); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}
