package layout

import "math"

// Derive 根据画面尺寸推导字号与描边宽度。纯函数，没有失败路径。
func Derive(width, height int) RenderParams {
	shortest := float64(min(width, height))
	fontSize := math.Max(FontFloorPx, shortest/FontDivisor)
	return RenderParams{
		FontSizePx:    fontSize,
		StrokeWidthPx: math.Max(StrokeFloorPx, fontSize/StrokeDivisor),
		FillColor:     White,
		StrokeColor:   Black,
	}
}
