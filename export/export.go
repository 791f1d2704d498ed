package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/memegen/failure"
	"github.com/ByLCY/memegen/handle"
	"github.com/ByLCY/memegen/surface"
)

// Exporter 把合成后的画面编码后铸造成句柄。
type Exporter struct {
	store *handle.Store
}

// NewExporter creates an exporter that mints handles in store.
func NewExporter(store *handle.Store) *Exporter {
	return &Exporter{store: store}
}

// Store 返回导出器使用的句柄仓库。
func (e *Exporter) Store() *handle.Store { return e.store }

// Export 编码 s 并返回新的句柄。编码失败返回 *failure.EncodeError，此时不会铸造句柄。
// ctx 在铸造前已结束时同样不铸造。
func (e *Exporter) Export(ctx context.Context, s *surface.Surface, enc Encoding) (handle.Handle, error) {
	data, err := Encode(s, enc)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h, err := e.store.Mint(data, enc.Format.MIMEType())
	if err != nil {
		return "", &failure.EncodeError{Format: string(enc.Format), Err: err}
	}
	return h, nil
}

// Encode 把画面序列化为 enc 指定的格式，并校验输出的文件头。
func Encode(s *surface.Surface, enc Encoding) ([]byte, error) {
	if s.Empty() {
		return nil, &failure.EncodeError{Format: string(enc.Format), Err: failure.ErrEmptyImage}
	}
	format, opts, err := enc.imagingFormat()
	if err != nil {
		return nil, &failure.EncodeError{Format: string(enc.Format), Err: err}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, s.Image(), format, opts...); err != nil {
		return nil, &failure.EncodeError{Format: string(enc.Format), Err: err}
	}
	if buf.Len() == 0 {
		return nil, &failure.EncodeError{Format: string(enc.Format), Err: failure.ErrEmptyEncoding}
	}
	if got := Sniff(buf.Bytes()); got != enc.Format {
		return nil, &failure.EncodeError{
			Format: string(enc.Format),
			Err:    fmt.Errorf("%w: 实际为 %q", failure.ErrFormatMismatch, got),
		}
	}
	return buf.Bytes(), nil
}
