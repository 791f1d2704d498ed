package job

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ByLCY/memegen/binding"
	"github.com/ByLCY/memegen/dsl"
	"github.com/ByLCY/memegen/export"
	"github.com/ByLCY/memegen/studio"
)

// Job 是一个已解析、已绑定数据的生成任务。
type Job struct {
	Name     string
	Version  string
	Template studio.Template
	Captions []string
	Encoding export.Encoding
	Timeout  time.Duration // 0 表示使用流水线默认值
	Wrap     bool
	Font     string

	boxesSet bool // 任务文件显式给出了 boxes
}

// Load 解析任务文件并绑定数据。
func Load(r io.Reader, data any) (*Job, error) {
	doc, err := dsl.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析任务文件失败: %w", err)
	}
	return Build(doc, data)
}

// Build 把语法树转换为任务。字幕与图片地址中的 ${path} 会用 data 替换；
// data 非空时，无法解析的占位符视为错误。
func Build(doc *dsl.Document, data any) (*Job, error) {
	if doc == nil {
		return nil, fmt.Errorf("任务文件为空")
	}
	j := &Job{
		Name:     doc.Name,
		Version:  doc.Version,
		Template: studio.Template{Name: doc.Name},
		Encoding: export.PNG(),
	}
	if err := j.applyTemplate(doc.Template()); err != nil {
		return nil, err
	}
	if err := j.applyOutput(doc.Output()); err != nil {
		return nil, err
	}

	for _, text := range doc.Captions() {
		bound, err := bind(text, data)
		if err != nil {
			return nil, fmt.Errorf("字幕 %q: %w", text, err)
		}
		j.Captions = append(j.Captions, bound)
	}
	src, err := bind(j.Template.URL, data)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	j.Template.URL = src

	if strings.TrimSpace(j.Template.URL) == "" {
		return nil, fmt.Errorf("template 缺少 source")
	}
	if !j.boxesSet {
		j.Template.BoxCount = len(j.Captions)
	}
	return j, nil
}

func bind(text string, data any) (string, error) {
	if data == nil {
		return text, nil
	}
	return binding.InterpolateStrict(text, data)
}

func (j *Job) applyTemplate(b *dsl.Block) error {
	if b == nil {
		return fmt.Errorf("缺少 template 段")
	}
	for _, a := range b.Entries {
		var err error
		switch a.Key {
		case "id":
			j.Template.ID = a.Value.Text()
		case "name":
			j.Template.Name = a.Value.Text()
		case "source", "url":
			j.Template.URL = a.Value.Text()
		case "boxes", "box_count":
			j.Template.BoxCount, err = a.Value.Int()
			j.boxesSet = true
			if err == nil && j.Template.BoxCount < 0 {
				err = fmt.Errorf("boxes 不能为负数")
			}
		default:
			err = fmt.Errorf("未知字段")
		}
		if err != nil {
			return fieldError("template", a, err)
		}
	}
	return nil
}

func (j *Job) applyOutput(b *dsl.Block) error {
	if b == nil {
		return nil
	}
	quality := 0
	for _, a := range b.Entries {
		var err error
		switch a.Key {
		case "format":
			j.Encoding.Format, err = export.ParseFormat(a.Value.Text())
		case "quality":
			quality, err = a.Value.Int()
			if err == nil && (quality < 1 || quality > 100) {
				err = fmt.Errorf("quality 必须在 1-100 之间")
			}
		case "timeout":
			j.Timeout, err = time.ParseDuration(a.Value.Text())
			if err == nil && j.Timeout <= 0 {
				err = fmt.Errorf("timeout 必须大于 0")
			}
		case "wrap":
			j.Wrap, err = a.Value.Bool()
		case "font":
			j.Font = a.Value.Text()
		default:
			err = fmt.Errorf("未知字段")
		}
		if err != nil {
			return fieldError("output", a, err)
		}
	}
	if j.Encoding.Format == export.FormatJPEG {
		j.Encoding = export.JPEG(quality)
	} else {
		j.Encoding = export.PNG()
	}
	return nil
}

func fieldError(section string, a *dsl.Assignment, err error) error {
	return fmt.Errorf("第 %d 行 %s.%s: %w", a.Pos.Line, section, a.Key, err)
}
