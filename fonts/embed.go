package fonts

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFace 是字幕默认使用的内置粗体。
const DefaultFace = "embed:bold"

var builtin = map[string][]byte{
	"bold":    gobold.TTF,
	"regular": goregular.TTF,
}

// Load 返回字体的字节数据。path 可写为 "embed:bold"、"embed:regular" 或字体文件路径。
func Load(path string) ([]byte, error) {
	if path == "" {
		path = DefaultFace
	}
	if name, ok := strings.CutPrefix(path, "embed:"); ok {
		data, found := builtin[strings.ToLower(name)]
		if !found {
			return nil, fmt.Errorf("找不到内置字体 %s", path)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	return data, nil
}
