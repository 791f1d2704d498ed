package layout

// 该文件定义排版参数与锚点，供布局计算、渲染与调试 JSON 共用。

import colorful "github.com/lucasb-eyer/go-colorful"

// Color 采用 0-255 的 RGBA 数值。
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Hex 返回 #rrggbb 形式，忽略透明度。
func (c Color) Hex() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

var (
	White = Color{R: 255, G: 255, B: 255, A: 255}
	Black = Color{A: 255}
)

// RenderParams 由画面尺寸推导出的文字样式，每次合成重新计算，不会被修改。
type RenderParams struct {
	FontSizePx    float64 `json:"fontSizePx"`
	StrokeWidthPx float64 `json:"strokeWidthPx"`
	FillColor     Color   `json:"fillColor"`
	StrokeColor   Color   `json:"strokeColor"`
}

// Align 为水平对齐方式，目前只使用居中。
type Align string

const (
	AlignCenter Align = "center"
)

// Baseline 描述锚点 y 与文字块的相对位置。
type Baseline string

const (
	BaselineTop    Baseline = "top"    // y 为文字顶部
	BaselineMiddle Baseline = "middle" // y 为文字垂直中心
)

// Anchor 是一条字幕的绘制原点。
type Anchor struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Align    Align    `json:"textAlign"`
	Baseline Baseline `json:"textBaseline"`
}

// Plan 汇总一次合成的排版结果：样式、锚点与对齐到槽位的字幕。
type Plan struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	BoxCount int          `json:"boxCount"`
	Params   RenderParams `json:"params"`
	Anchors  []Anchor     `json:"anchors"`
	Captions []string     `json:"captions"`
}
