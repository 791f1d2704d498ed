package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ByLCY/memegen/export"
	"github.com/ByLCY/memegen/failure"
	"github.com/ByLCY/memegen/handle"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/renderer"
	"github.com/ByLCY/memegen/surface"
)

// DefaultTimeout 是一次合成从加载到导出的总预算。
const DefaultTimeout = 5 * time.Second

// Loader 获取并解码源图片。
type Loader interface {
	Load(ctx context.Context, ref string) (*surface.Surface, error)
}

// Exporter 编码画面并铸造句柄。
type Exporter interface {
	Export(ctx context.Context, s *surface.Surface, enc export.Encoding) (handle.Handle, error)
}

// Revoker 释放被丢弃的句柄。
type Revoker interface {
	Revoke(h handle.Handle) bool
}

// Options configures a pipeline.
type Options struct {
	Timeout  time.Duration   // 默认 5s
	Encoding export.Encoding // 默认 PNG
	// Revoker 用于撤销超时后才完成导出的句柄；为空时尝试使用导出器的句柄仓库。
	Revoker Revoker
	Logger  *slog.Logger

	OnTransition func(State)       // 每次状态迁移
	OnPlan       func(layout.Plan) // 排版完成、绘制之前
}

// Pipeline 在截止时间内完成 加载→排版→绘制→导出。
// 可被多个 goroutine 同时调用，每次调用独占自己的画面与排版结果。
type Pipeline struct {
	loader   Loader
	renderer renderer.Renderer
	exporter Exporter
	opts     Options
	log      *slog.Logger

	wg sync.WaitGroup
}

// New creates a pipeline.
func New(loader Loader, r renderer.Renderer, exp Exporter, opts Options) *Pipeline {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Encoding.Format == "" {
		opts.Encoding = export.PNG()
	}
	if opts.Revoker == nil {
		if s, ok := exp.(interface{ Store() *handle.Store }); ok && s.Store() != nil {
			opts.Revoker = s.Store()
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{loader: loader, renderer: r, exporter: exp, opts: opts, log: logger}
}

// Generate 合成一张图片并返回句柄。恰好返回一种结果：
// 成功时句柄非空；失败时为 *failure.ImageLoadError、*failure.TimeoutError、
// *failure.EncodeError 或调用方取消时的 context.Canceled。
//
// 截止时间到期后，仍在进行的加载或导出不会被主动取消，只是不再等待；
// 它们之后的结果会被丢弃，迟到的句柄会被立即撤销。
func (p *Pipeline) Generate(ctx context.Context, ref string, captions []string, boxCount int) (handle.Handle, error) {
	inv := newInvocation(p.opts.OnTransition)
	inv.advance(Loading)

	timer := time.NewTimer(p.opts.Timeout)
	defer timer.Stop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx, inv, ref, captions, boxCount)
	}()

	select {
	case <-inv.done:
	case <-timer.C:
		stage := inv.current()
		if inv.finish("", &failure.TimeoutError{Stage: stage.String(), After: p.opts.Timeout}) {
			p.log.Warn("合成超时", "ref", ref, "stage", stage.String(), "after", p.opts.Timeout)
		}
	case <-ctx.Done():
		inv.finish("", contextFailure(ctx, inv.current(), p.opts.Timeout))
	}
	return inv.result()
}

// Wait 阻塞直到所有已放弃的后台工作结束。
func (p *Pipeline) Wait() { p.wg.Wait() }

func (p *Pipeline) run(ctx context.Context, inv *invocation, ref string, captions []string, boxCount int) {
	s, err := p.loader.Load(ctx, ref)
	if err != nil {
		p.settle(ctx, inv, err)
		return
	}
	if !inv.advance(Rendering) {
		p.log.Debug("丢弃迟到的加载结果", "ref", ref)
		return
	}

	plan := layout.NewPlan(boxCount, s.Width(), s.Height(), captions)
	if p.opts.OnPlan != nil {
		p.opts.OnPlan(plan)
	}
	for i, anchor := range plan.Anchors {
		p.renderer.Render(s.Image(), anchor, plan.Captions[i], plan.Params)
	}

	if !inv.advance(Exporting) {
		p.log.Debug("调用已结束，跳过导出", "ref", ref)
		return
	}
	h, err := p.exporter.Export(ctx, s, p.opts.Encoding)
	s = nil
	if err != nil {
		p.settle(ctx, inv, err)
		return
	}
	if h == "" {
		p.settle(ctx, inv, &failure.EncodeError{Format: string(p.opts.Encoding.Format), Err: failure.ErrEmptyEncoding})
		return
	}
	if !inv.finish(h, nil) {
		if p.opts.Revoker != nil {
			p.opts.Revoker.Revoke(h)
		}
		p.log.Debug("撤销迟到的句柄", "ref", ref, "handle", h.String())
		return
	}
	p.log.Debug("合成完成", "ref", ref, "handle", h.String(), "encoding", p.opts.Encoding.String())
}

// settle 以失败结算；若调用方 ctx 已结束，以 ctx 的原因为准。
func (p *Pipeline) settle(ctx context.Context, inv *invocation, err error) {
	stage := inv.current()
	if ctx.Err() != nil {
		err = contextFailure(ctx, stage, p.opts.Timeout)
	}
	if !inv.finish("", err) {
		p.log.Debug("丢弃迟到的失败", "stage", stage.String(), "err", err)
		return
	}
	p.log.Warn("合成失败", "stage", stage.String(), "kind", failure.Classify(err).String(), "err", err)
}
