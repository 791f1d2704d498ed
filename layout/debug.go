package layout

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// debugSlot 把锚点与对应字幕放在一起，便于逐槽位检查。
type debugSlot struct {
	Index   int    `json:"index"`
	Anchor  Anchor `json:"anchor"`
	Caption string `json:"caption"`
	Skipped bool   `json:"skipped,omitempty"`
}

type debugDocument struct {
	*Plan
	Fill   string      `json:"fill"`
	Stroke string      `json:"stroke"`
	Slots  []debugSlot `json:"slots"`
}

// EncodeDebugJSON 将排版结果以缩进 JSON 写入 w。
func EncodeDebugJSON(w io.Writer, plan *Plan) error {
	if plan == nil {
		return nil
	}
	doc := debugDocument{
		Plan:   plan,
		Fill:   plan.Params.FillColor.Hex(),
		Stroke: plan.Params.StrokeColor.Hex(),
		Slots:  make([]debugSlot, len(plan.Anchors)),
	}
	for i, a := range plan.Anchors {
		var text string
		if i < len(plan.Captions) {
			text = plan.Captions[i]
		}
		doc.Slots[i] = debugSlot{Index: i, Anchor: a, Caption: text, Skipped: strings.TrimSpace(text) == ""}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteDebugJSON 将排版结果输出为 JSON 文件，必要时创建目录。
func WriteDebugJSON(plan *Plan, path string) error {
	if plan == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeDebugJSON(f, plan); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
