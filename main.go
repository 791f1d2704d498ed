package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ByLCY/memegen/binding"
	"github.com/ByLCY/memegen/caption"
	"github.com/ByLCY/memegen/export"
	"github.com/ByLCY/memegen/handle"
	"github.com/ByLCY/memegen/job"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/pipeline"
	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
	"github.com/ByLCY/memegen/source"
	"github.com/ByLCY/memegen/studio"
)

type config struct {
	input    string
	output   string
	debug    string
	data     string
	origin   string
	fallback string
	format   string
	quality  int
	timeout  time.Duration
	wrap     bool
	font     string
	verbose  bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.input, "in", "examples/drake.meme", "任务文件路径")
	flag.StringVar(&cfg.output, "out", "", "图片输出路径，默认 output/<名称>.<格式>")
	flag.StringVar(&cfg.debug, "debug", "", "排版调试 JSON 输出路径")
	flag.StringVar(&cfg.data, "data", "", "绑定到字幕的 JSON 数据，以 @ 开头时读取文件")
	flag.StringVar(&cfg.origin, "origin", "http://localhost:5173", "应用所在的源，用于判断跨域")
	flag.StringVar(&cfg.fallback, "fallback", "", "本地合成失败时调用的字幕服务地址，为空则不兜底")
	flag.StringVar(&cfg.format, "format", "", "覆盖输出格式（png 或 jpeg）")
	flag.IntVar(&cfg.quality, "quality", 0, "覆盖 JPEG 质量（1-100）")
	flag.DurationVar(&cfg.timeout, "timeout", 0, "覆盖合成超时，默认 5s")
	flag.BoolVar(&cfg.wrap, "wrap", false, "按画面宽度自动换行")
	flag.StringVar(&cfg.font, "font", "", "字体文件路径或 embed:bold / embed:regular")
	flag.BoolVar(&cfg.verbose, "v", false, "输出调试日志")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := run(ctx, cfg)
	if err != nil {
		log.Fatalf("生成图片失败: %v", err)
	}
	fmt.Printf("已生成图片：%s\n", out)
}

// run 串联任务解析、本地合成、远程兜底与输出。
func run(ctx context.Context, cfg config) (string, error) {
	data, err := loadData(cfg.data)
	if err != nil {
		return "", err
	}
	file, err := os.Open(cfg.input)
	if err != nil {
		return "", fmt.Errorf("无法打开任务文件 %s: %w", cfg.input, err)
	}
	j, err := job.Load(file, data)
	file.Close()
	if err != nil {
		return "", err
	}
	if err := applyOverrides(j, cfg); err != nil {
		return "", err
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	r, err := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		Font: j.Font,
		Wrap: canvasrenderer.WrapOptions{Enabled: j.Wrap},
	})
	if err != nil {
		return "", err
	}
	store := handle.NewStore(cfg.origin)
	loader := source.NewLoader(source.Options{
		AppOrigin: cfg.origin,
		BaseDir:   filepath.Dir(cfg.input),
		Store:     store,
	})
	pipe := pipeline.New(loader, r, export.NewExporter(store), pipeline.Options{
		Timeout:  j.Timeout,
		Encoding: j.Encoding,
		Logger:   logger,
		OnPlan: func(plan layout.Plan) {
			if cfg.debug == "" {
				return
			}
			if err := writeDebug(&plan, cfg.debug); err != nil {
				logger.Warn("输出调试 JSON 失败", "err", err)
			}
		},
	})
	defer pipe.Wait()

	opts := studio.Options{Revoker: store, Logger: logger}
	if cfg.fallback != "" {
		opts.Fallback = caption.NewClient(caption.Options{
			Endpoint: cfg.fallback,
			Username: os.Getenv("IMGFLIP_USERNAME"),
			Password: os.Getenv("IMGFLIP_PASSWORD"),
		})
	}
	session := studio.NewSession(pipe, opts)
	defer session.Close()

	res, err := session.Generate(ctx, j.Template, j.Captions)
	if err != nil {
		return "", err
	}

	outPath := cfg.output
	if outPath == "" {
		outPath = filepath.Join("output", j.Name+j.Encoding.Format.Extension())
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := save(ctx, store, res, outPath); err != nil {
		return "", err
	}
	logger.Debug("句柄仓库", "live", store.Len(), "bytes", store.Bytes())
	if res.Source == studio.SourceRemote {
		return fmt.Sprintf("%s（远程生成：%s）", outPath, res.URL), nil
	}
	return outPath, nil
}

func applyOverrides(j *job.Job, cfg config) error {
	if cfg.format != "" {
		f, err := export.ParseFormat(cfg.format)
		if err != nil {
			return err
		}
		j.Encoding.Format = f
	}
	if cfg.quality != 0 {
		if cfg.quality < 1 || cfg.quality > 100 {
			return fmt.Errorf("quality 必须在 1-100 之间")
		}
		j.Encoding.Quality = cfg.quality
	}
	if j.Encoding.Format == export.FormatJPEG {
		j.Encoding = export.JPEG(j.Encoding.Quality)
	} else {
		j.Encoding = export.PNG()
	}
	if cfg.timeout > 0 {
		j.Timeout = cfg.timeout
	}
	if cfg.wrap {
		j.Wrap = true
	}
	if cfg.font != "" {
		j.Font = cfg.font
	}
	return nil
}

func loadData(arg string) (any, error) {
	if arg == "" {
		return nil, nil
	}
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("无法打开数据文件 %s: %w", path, err)
		}
		defer f.Close()
		return binding.Decode(f)
	}
	return binding.Decode(strings.NewReader(arg))
}

// save 写出结果：本地句柄直接取字节，远程结果下载后写入。
func save(ctx context.Context, store *handle.Store, res studio.Result, path string) error {
	if res.Local != "" {
		blob, ok := store.Open(res.Local)
		if !ok {
			return fmt.Errorf("句柄 %s 已失效", res.Local)
		}
		if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
			return fmt.Errorf("写入图片失败: %w", err)
		}
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		return fmt.Errorf("下载远程图片失败: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("下载远程图片失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("下载远程图片失败: 状态 %d", resp.StatusCode)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("写入图片失败: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("写入图片失败: %w", err)
	}
	return nil
}

func writeDebug(plan *layout.Plan, debugPath string) error {
	if err := layout.WriteDebugJSON(plan, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
