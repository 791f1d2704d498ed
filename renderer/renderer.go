package renderer

import (
	"image"

	"github.com/ByLCY/memegen/layout"
)

// Renderer 在画面上以锚点为原点绘制一条字幕，直接修改 dst。
// 样式完全由 params 决定，调用之间不共享任何绘制状态。
type Renderer interface {
	Render(dst *image.NRGBA, anchor layout.Anchor, text string, params layout.RenderParams)
}
