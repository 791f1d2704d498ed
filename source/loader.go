package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/memegen/failure"
	"github.com/ByLCY/memegen/handle"
	"github.com/ByLCY/memegen/surface"
)

const (
	defaultMaxBytes    = 32 << 20
	defaultMaxPixels   = 64 << 20
	defaultHTTPTimeout = 30 * time.Second
)

// Options configures the image loader.
type Options struct {
	AppOrigin   string        // 应用所在的源，例如 http://localhost:5173
	BaseDir     string        // 相对文件路径的根目录；为空时只允许绝对路径
	Client      *http.Client  // 为空时使用带 30s 超时的默认客户端
	Credentials http.Header   // 仅随同源请求发送
	MaxBytes    int64         // 单张图片的最大字节数，默认 32MiB
	MaxPixels   int           // 解码前按头部尺寸拦截超大图片，默认 64M 像素
	Store       *handle.Store // 解析 blob: 句柄
}

// Loader 把图片引用解码为可逐像素访问的画面。加载器本身不重试。
type Loader struct {
	opts   Options
	client *http.Client
}

// NewLoader creates a loader with the given options.
func NewLoader(opts Options) *Loader {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = defaultMaxPixels
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Loader{opts: opts, client: client}
}

// Load 获取并解码 ref。任何失败都以 *failure.ImageLoadError 返回。
func (l *Loader) Load(ctx context.Context, ref string) (*surface.Surface, error) {
	data, err := l.read(ctx, ref)
	if err != nil {
		return nil, &failure.ImageLoadError{Ref: ref, Err: err}
	}
	cfg, _, err := decodeConfig(data)
	if err != nil {
		return nil, &failure.ImageLoadError{Ref: ref, Err: fmt.Errorf("无法识别的图片: %w", err)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &failure.ImageLoadError{Ref: ref, Err: failure.ErrEmptyImage}
	}
	if cfg.Width*cfg.Height > l.opts.MaxPixels {
		return nil, &failure.ImageLoadError{Ref: ref, Err: fmt.Errorf("图片 %dx%d 超过像素上限", cfg.Width, cfg.Height)}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &failure.ImageLoadError{Ref: ref, Err: fmt.Errorf("解码失败: %w", err)}
	}
	s := surface.FromImage(img)
	if s.Empty() {
		return nil, &failure.ImageLoadError{Ref: ref, Err: failure.ErrEmptyImage}
	}
	return s, nil
}

func (l *Loader) read(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, errors.New("图片引用为空")
	case handle.IsHandle(ref):
		return l.readHandle(ref)
	case strings.HasPrefix(ref, "data:"):
		return readDataURL(ref)
	case isRemote(ref):
		return l.fetch(ctx, ref, AccessModeFor(ref, l.opts.AppOrigin))
	default:
		return l.readFile(ref)
	}
}

func (l *Loader) readHandle(ref string) ([]byte, error) {
	if l.opts.Store == nil {
		return nil, fmt.Errorf("未配置句柄仓库，无法解析 %s", ref)
	}
	blob, ok := l.opts.Store.Open(handle.Handle(ref))
	if !ok {
		return nil, fmt.Errorf("句柄 %s 不存在或已撤销", ref)
	}
	return blob.Data, nil
}

func (l *Loader) fetch(ctx context.Context, ref string, mode AccessMode) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	if mode == ModeAnonymous {
		if l.opts.AppOrigin != "" {
			req.Header.Set("Origin", strings.TrimRight(l.opts.AppOrigin, "/"))
		}
	} else {
		for k, vs := range l.opts.Credentials {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("请求返回状态 %d", resp.StatusCode)
	}
	if mode == ModeAnonymous && !corsAllows(resp.Header.Get("Access-Control-Allow-Origin"), l.opts.AppOrigin) {
		return nil, failure.ErrCrossOriginBlocked
	}
	return l.readLimited(resp.Body)
}

func (l *Loader) readFile(ref string) ([]byte, error) {
	path := strings.TrimPrefix(ref, "file://")
	if l.opts.BaseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用相对路径：%s", ref)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.opts.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片失败: %w", err)
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取图片数据失败: %w", err)
	}
	if int64(len(data)) > l.opts.MaxBytes {
		return nil, fmt.Errorf("图片超过 %d 字节上限", l.opts.MaxBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("图片数据为空")
	}
	return data, nil
}

// readDataURL 解析 data:[<mime>][;base64],<payload>。
func readDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("data URL 缺少逗号分隔符")
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
				return nil, fmt.Errorf("data URL base64 解码失败: %w", err)
			}
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URL 解码失败: %w", err)
	}
	return []byte(text), nil
}

// decodeConfig 只读取图片头部的尺寸与格式。
func decodeConfig(data []byte) (image.Config, string, error) {
	return image.DecodeConfig(bytes.NewReader(data))
}
