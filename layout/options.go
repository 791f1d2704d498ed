package layout

// 排版策略常量。字号取 min(宽, 高)/FontDivisor，且不低于 FontFloorPx；
// 描边取字号/StrokeDivisor，且不低于 StrokeFloorPx。
const (
	FontDivisor   = 12.0
	FontFloorPx   = 24.0
	StrokeDivisor = 12.0
	StrokeFloorPx = 2.0

	// EdgeMarginPx 是上下两栏模式下文字与画面边缘的距离。
	EdgeMarginPx = 10.0
)
