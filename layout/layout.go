package layout

// Layout 把 boxCount 个字幕槽位映射为画面上的锚点。
//
// boxCount == 2 时使用经典的上下两栏：两条字幕以垂直中心对齐，
// 顶部位于 fontSize+EdgeMarginPx，底部位于 height-fontSize-EdgeMarginPx。
// 画面太矮放不下两栏时退回均分模式，保证锚点互不重合且位于画面内。
// 其余情况把槽位沿垂直方向均匀分布：第 i 个槽位位于 height*(i+1)/(boxCount+1)。
func Layout(boxCount, width, height int) []Anchor {
	if boxCount <= 0 {
		return nil
	}
	cx := float64(width) / 2
	h := float64(height)

	if boxCount == 2 {
		inset := Derive(width, height).FontSizePx + EdgeMarginPx
		if h > 2*inset {
			return []Anchor{
				{X: cx, Y: inset, Align: AlignCenter, Baseline: BaselineMiddle},
				{X: cx, Y: h - inset, Align: AlignCenter, Baseline: BaselineMiddle},
			}
		}
	}

	anchors := make([]Anchor, boxCount)
	step := h / float64(boxCount+1)
	for i := range anchors {
		anchors[i] = Anchor{
			X:        cx,
			Y:        step * float64(i+1),
			Align:    AlignCenter,
			Baseline: BaselineMiddle,
		}
	}
	return anchors
}

// AlignCaptions 把字幕对齐到 boxCount 个槽位：多余的丢弃，缺少的补空串。
func AlignCaptions(captions []string, boxCount int) []string {
	if boxCount <= 0 {
		return nil
	}
	out := make([]string, boxCount)
	copy(out, captions)
	return out
}

// NewPlan 计算一次合成所需的全部排版信息。
func NewPlan(boxCount, width, height int, captions []string) Plan {
	return Plan{
		Width:    width,
		Height:   height,
		BoxCount: max(boxCount, 0),
		Params:   Derive(width, height),
		Anchors:  Layout(boxCount, width, height),
		Captions: AlignCaptions(captions, boxCount),
	}
}
