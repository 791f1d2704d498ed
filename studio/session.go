package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ByLCY/memegen/caption"
	"github.com/ByLCY/memegen/failure"
	"github.com/ByLCY/memegen/handle"
	"github.com/ByLCY/memegen/layout"
)

// ErrGenerationFailed 表示本地合成与远程兜底都失败了。
var ErrGenerationFailed = errors.New("生成失败，请重试")

// Template 对应 imgflip get_memes 返回的模板。
type Template struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	BoxCount int    `json:"box_count"`
}

// Source 标记结果来自本地合成还是远程服务。
type Source int

const (
	SourceLocal Source = iota
	SourceRemote
)

func (s Source) String() string {
	if s == SourceRemote {
		return "remote"
	}
	return "local"
}

// Result 是当前展示的图片。Local 仅在本地合成时非空。
type Result struct {
	URL       string
	PageURL   string
	Local     handle.Handle
	Source    Source
	CreatedAt time.Time
}

// Generator 是本地合成流水线。
type Generator interface {
	Generate(ctx context.Context, ref string, captions []string, boxCount int) (handle.Handle, error)
}

// Captioner 是远程字幕服务。
type Captioner interface {
	Caption(ctx context.Context, req caption.Request) (*caption.Data, error)
}

// Revoker 释放不再展示的句柄。
type Revoker interface {
	Revoke(h handle.Handle) bool
}

// DefaultFallbackTimeout 是单次远程兜底请求的时限。
const DefaultFallbackTimeout = 15 * time.Second

// Options configures a session.
type Options struct {
	Fallback        Captioner // 为空时不走兜底
	FallbackTimeout time.Duration
	Revoker         Revoker
	Logger          *slog.Logger
}

// Session 持有当前展示的结果：新结果替换旧结果时撤销旧句柄。
type Session struct {
	gen             Generator
	fallback        Captioner
	fallbackTimeout time.Duration
	revoker         Revoker
	log             *slog.Logger

	mu      sync.Mutex
	current *Result
}

// NewSession creates a session around a local generator.
func NewSession(gen Generator, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.FallbackTimeout
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}
	return &Session{gen: gen, fallback: opts.Fallback, fallbackTimeout: timeout, revoker: opts.Revoker, log: logger}
}

// Generate 先尝试本地合成，失败后调用远程字幕服务。
// 两者都失败时返回包裹了两个原因的 ErrGenerationFailed，当前结果保持不变。
// 调用方取消时不走兜底；调用方的截止时间已过时，兜底请求脱离该时限，另用 FallbackTimeout 约束。
func (s *Session) Generate(ctx context.Context, tpl Template, captions []string) (Result, error) {
	h, err := s.gen.Generate(ctx, tpl.URL, captions, tpl.BoxCount)
	if err == nil {
		res := Result{URL: h.String(), Local: h, Source: SourceLocal, CreatedAt: time.Now()}
		s.replace(res)
		return res, nil
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return Result{}, err
	}
	if s.fallback == nil {
		return Result{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	s.log.Warn("本地合成失败，改用远程字幕服务", "template", tpl.ID, "kind", failure.Classify(err).String(), "err", err)
	texts := captions
	if tpl.BoxCount > 0 {
		texts = layout.AlignCaptions(captions, tpl.BoxCount)
	}
	base := ctx
	if ctx.Err() != nil {
		base = context.WithoutCancel(ctx)
	}
	fctx, cancel := context.WithTimeout(base, s.fallbackTimeout)
	defer cancel()
	data, ferr := s.fallback.Caption(fctx, caption.NewRequest(tpl.ID, texts))
	if ferr != nil {
		s.log.Warn("远程字幕服务失败", "template", tpl.ID, "err", ferr)
		return Result{}, fmt.Errorf("%w: 本地合成: %w; 远程服务: %w", ErrGenerationFailed, err, ferr)
	}
	res := Result{URL: data.URL, PageURL: data.PageURL, Source: SourceRemote, CreatedAt: time.Now()}
	s.replace(res)
	return res, nil
}

// Current 返回当前展示的结果。
func (s *Session) Current() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Result{}, false
	}
	return *s.current, true
}

// Close 撤销当前句柄并清空结果。
func (s *Session) Close() {
	s.mu.Lock()
	old := s.current
	s.current = nil
	s.mu.Unlock()
	s.release(old)
}

func (s *Session) replace(res Result) {
	s.mu.Lock()
	old := s.current
	s.current = &res
	s.mu.Unlock()
	if old != nil && old.Local != res.Local {
		s.release(old)
	}
}

func (s *Session) release(r *Result) {
	if r == nil || r.Local == "" || s.revoker == nil {
		return
	}
	if s.revoker.Revoke(r.Local) {
		s.log.Debug("撤销旧句柄", "handle", r.Local.String())
	}
}
