package surface

import (
	"image"

	"github.com/disintegration/imaging"
)

// Surface 是一次合成独占的像素缓冲区，尺寸在创建后固定。
type Surface struct {
	img *image.NRGBA
}

// New 创建 width×height 的透明画面。
func New(width, height int) *Surface {
	return &Surface{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// FromImage 复制 src 的像素，返回原点为 (0,0) 的画面。
func FromImage(src image.Image) *Surface {
	return &Surface{img: imaging.Clone(src)}
}

func (s *Surface) Width() int  { return s.img.Rect.Dx() }
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Image 返回底层缓冲区，渲染器直接在上面绘制。
func (s *Surface) Image() *image.NRGBA { return s.img }

// Empty 报告画面是否没有像素。
func (s *Surface) Empty() bool { return s == nil || s.img == nil || s.img.Rect.Empty() }
