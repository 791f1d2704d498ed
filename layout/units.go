package layout

// 渲染器按 1 像素 = 1 毫米 栅格化画布，而字体系统以 pt 为单位，
// 因此字号在边界处做 px(mm)↔pt 换算。

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm

	// PxPerMm 是栅格化分辨率（每毫米像素数）。
	PxPerMm = 1.0
)

// PxToPt 将像素字号换算为 pt。
func PxToPt(px float64) float64 { return px / PxPerMm * MmToPt }

// PtToPx 将 pt 换算为像素。
func PtToPx(pt float64) float64 { return pt * PtToMm * PxPerMm }
