package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ByLCY/memegen/fonts"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/renderer"
)

const defaultMaxWidthRatio = 0.85

// Renderer draws captions via github.com/tdewolff/canvas.
type Renderer struct {
	// 字体整形缓存不是并发安全的，构建字形图层时持锁。
	fontMu sync.Mutex
	family *canvas.FontFamily
	style  canvas.FontStyle

	wrap WrapOptions
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	Font      string // fonts.Load 路径，默认 embed:bold
	FontBytes []byte // 非空时优先于 Font
	Style     string // 例如 "bold"、"regular"；默认 bold
	Wrap      WrapOptions
}

// WrapOptions 控制可选的自动换行。关闭时只按显式换行符分行，长文本允许溢出画面。
type WrapOptions struct {
	Enabled       bool
	MaxWidthRatio float64 // 每行最大宽度占画面宽度的比例，默认 0.85
}

// NewRenderer creates a renderer with the built-in bold face.
func NewRenderer() (*Renderer, error) { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer and loads its font eagerly so that Render cannot fail.
func NewRendererWithOptions(opts Options) (*Renderer, error) {
	data := opts.FontBytes
	if len(data) == 0 {
		var err error
		if data, err = fonts.Load(opts.Font); err != nil {
			return nil, err
		}
	}
	styleName := opts.Style
	if styleName == "" {
		styleName = "bold"
	}
	style := parseFontStyle(styleName)
	family := canvas.NewFontFamily("memegen")
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("加载字体失败: %w", err)
	}
	wrap := opts.Wrap
	if wrap.MaxWidthRatio <= 0 || wrap.MaxWidthRatio > 1 {
		wrap.MaxWidthRatio = defaultMaxWidthRatio
	}
	return &Renderer{family: family, style: style, wrap: wrap}, nil
}

// Render 以描边后填充的顺序绘制一条字幕。文本先转为大写；空白文本不做任何绘制。
func (r *Renderer) Render(dst *image.NRGBA, anchor layout.Anchor, text string, params layout.RenderParams) {
	text, ok := normalizeCaption(text)
	if !ok || dst == nil || dst.Rect.Empty() {
		return
	}
	layer := r.glyphLayer(dst.Rect.Dx(), dst.Rect.Dy(), anchor, text, params)
	draw.Draw(dst, dst.Rect, layer, layer.Rect.Min, draw.Over)
}

// MeasureText 返回字幕（大写后）单行渲染的宽度，单位为像素。
func (r *Renderer) MeasureText(text string, params layout.RenderParams) float64 {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	face := r.face(params.FontSizePx, params.FillColor)
	return face.TextWidth(upper(text)) * layout.PxPerMm
}

// glyphLayer 在透明图层上先以描边宽度勾勒字形轮廓，再填充字形，然后栅格化。
func (r *Renderer) glyphLayer(width, height int, anchor layout.Anchor, text string, params layout.RenderParams) *image.RGBA {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	c := canvas.New(float64(width)/layout.PxPerMm, float64(height)/layout.PxPerMm)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与画面保持左上角为原点

	face := r.face(params.FontSizePx, params.FillColor)
	lines := r.lines(text, face, float64(width))
	metrics := face.Metrics()
	ascent := metrics.Ascent
	descent := math.Abs(metrics.Descent)
	lineHeight := metrics.LineHeight
	if lineHeight <= 0 {
		lineHeight = ascent + descent
	}
	blockHeight := ascent + descent + float64(len(lines)-1)*lineHeight
	top := blockTop(anchor, blockHeight)

	glyphs := make([]*canvas.Path, len(lines))
	origins := make([]float64, len(lines))
	for i, line := range lines {
		p, advance, err := face.ToPath(line)
		if err != nil || p.Empty() {
			continue
		}
		// 字形路径的 y 轴向上，画布为 y 轴向下
		glyphs[i] = p.Transform(canvas.Identity.ReflectY())
		origins[i] = anchor.X - advance/2
	}
	baseline := func(i int) float64 { return top + ascent + float64(i)*lineHeight }

	// 先描边：轮廓以路径为中心向两侧各扩展 StrokeWidthPx/2
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(colorFromLayout(params.StrokeColor))
	ctx.SetStrokeWidth(params.StrokeWidthPx / layout.PxPerMm)
	ctx.SetStrokeJoiner(canvas.RoundJoin)
	ctx.SetStrokeCapper(canvas.RoundCap)
	for i, p := range glyphs {
		if p != nil {
			ctx.DrawPath(origins[i], baseline(i), p)
		}
	}

	ctx.SetFillColor(colorFromLayout(params.FillColor))
	ctx.SetStrokeColor(canvas.Transparent)
	for i, p := range glyphs {
		if p != nil {
			ctx.DrawPath(origins[i], baseline(i), p)
		}
	}
	return rasterizer.Draw(c, canvas.DPMM(layout.PxPerMm), canvas.DefaultColorSpace)
}

func (r *Renderer) face(sizePx float64, col layout.Color) *canvas.FontFace {
	return r.family.Face(layout.PxToPt(sizePx), colorFromLayout(col), r.style, canvas.FontNormal)
}

// lines 按显式换行拆分；开启自动换行时再按画面宽度的比例贪心折行。
func (r *Renderer) lines(text string, face *canvas.FontFace, width float64) []string {
	wrap := "nowrap"
	limit := 0.0
	if r.wrap.Enabled {
		wrap = "normal"
		limit = width * r.wrap.MaxWidthRatio
	}
	var out []string
	for _, ln := range greedyWrapTokens(text, limit, face, wrap) {
		out = append(out, strings.TrimSpace(ln))
	}
	if len(out) == 0 {
		out = []string{text}
	}
	return out
}

// blockTop 根据锚点基线方式求文字块顶部的 y。
func blockTop(anchor layout.Anchor, blockHeight float64) float64 {
	switch anchor.Baseline {
	case layout.BaselineTop:
		return anchor.Y
	default:
		return anchor.Y - blockHeight/2
	}
}

// normalizeCaption 把字幕转为大写，空白文本返回 false。
func normalizeCaption(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return upper(strings.ReplaceAll(text, "\r", "")), true
}

// upper 使用完整的 Unicode 大写映射（例如 ß → SS）。Caser 有状态，每次新建。
func upper(text string) string {
	return cases.Upper(language.Und).String(text)
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromLayout(c layout.Color) color.Color {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}
