package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// Format 是支持的两种输出编码。
type Format string

const (
	FormatPNG  Format = "png"  // 无损
	FormatJPEG Format = "jpeg" // 有损
)

// DefaultJPEGQuality 是请求 JPEG 但未给出质量时使用的值。默认输出为 PNG。
const DefaultJPEGQuality = 90

// Encoding 选择输出格式与质量。PNG 忽略 Quality。
type Encoding struct {
	Format  Format
	Quality int
}

func PNG() Encoding { return Encoding{Format: FormatPNG} }

// JPEG 返回指定质量的 JPEG 编码；quality 不在 1-100 内时使用默认值。
func JPEG(quality int) Encoding {
	return Encoding{Format: FormatJPEG, Quality: quality}.normalized()
}

// ParseFormat 解析 "png"、"jpeg"/"jpg"。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("不支持的输出格式 %q（仅支持 png、jpeg）", s)
	}
}

// MIMEType 返回格式对应的 MIME 类型。
func (f Format) MIMEType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Extension 返回格式的常用文件扩展名。
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

func (e Encoding) String() string {
	if e.Format == FormatJPEG {
		return fmt.Sprintf("jpeg(q=%d)", e.normalized().Quality)
	}
	return string(e.Format)
}

func (e Encoding) normalized() Encoding {
	if e.Format == FormatJPEG && (e.Quality < 1 || e.Quality > 100) {
		e.Quality = DefaultJPEGQuality
	}
	return e
}

func (e Encoding) imagingFormat() (imaging.Format, []imaging.EncodeOption, error) {
	e = e.normalized()
	switch e.Format {
	case FormatPNG:
		return imaging.PNG, nil, nil
	case FormatJPEG:
		return imaging.JPEG, []imaging.EncodeOption{imaging.JPEGQuality(e.Quality)}, nil
	default:
		return 0, nil, fmt.Errorf("不支持的输出格式 %q", e.Format)
	}
}

var pngSignature = [...]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Sniff 通过文件头识别编码格式，无法识别时返回空串。
func Sniff(data []byte) Format {
	// JPEG: FF D8 FF
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return FormatJPEG
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if bytes.HasPrefix(data, pngSignature[:]) {
		return FormatPNG
	}
	return ""
}
