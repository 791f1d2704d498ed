package failure

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// 下面的哨兵错误作为失败原因被包裹在具体的失败类型里。
var (
	ErrCrossOriginBlocked = errors.New("跨域图片未授权匿名访问")
	ErrEmptyImage         = errors.New("图片尺寸为空")
	ErrEmptyEncoding      = errors.New("编码结果为空")
	ErrFormatMismatch     = errors.New("编码结果与目标格式不一致")
)

// ImageLoadError 表示源图片获取或解码失败（网络、无效字节、跨域拦截）。
type ImageLoadError struct {
	Ref string
	Err error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("加载图片 %s 失败: %v", shorten(e.Ref), e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// TimeoutError 表示合成截止时间在加载或导出完成前到期。
// Stage 记录到期时流水线所处的阶段。
type TimeoutError struct {
	Stage string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("合成超时（%s）", e.After)
	}
	return fmt.Sprintf("合成超时（%s，阶段 %s）", e.After, e.Stage)
}

// Is 让 errors.Is(err, context.DeadlineExceeded) 对超时同样成立。
func (e *TimeoutError) Is(target error) bool { return target == context.DeadlineExceeded }

// EncodeError 表示合成后的画面无法序列化为目标编码。
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("编码 %s 失败: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Kind 是失败的分类，调用方据此决定是否走远程兜底。
type Kind int

const (
	KindUnknown Kind = iota
	KindImageLoad
	KindTimeout
	KindEncode
)

func (k Kind) String() string {
	switch k {
	case KindImageLoad:
		return "image-load"
	case KindTimeout:
		return "timeout"
	case KindEncode:
		return "encode"
	default:
		return "unknown"
	}
}

// Classify 返回 err 对应的失败分类；nil 返回 KindUnknown。
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		load    *ImageLoadError
		timeout *TimeoutError
		encode  *EncodeError
	)
	switch {
	case errors.As(err, &timeout):
		return KindTimeout
	case errors.As(err, &load):
		return KindImageLoad
	case errors.As(err, &encode):
		return KindEncode
	default:
		return KindUnknown
	}
}

// data: 引用可能非常长，错误信息里只保留开头。
func shorten(ref string) string {
	const max = 96
	if len(ref) <= max {
		return ref
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(ref[cut]) {
		cut--
	}
	return ref[:cut] + "…"
}
