package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonoitalic"
)

// Default 是渲染代码块时使用的等宽字体。
const Default = "gomono"

var builtin = map[string][]byte{
	"gomono":        gomono.TTF,
	"gomono-bold":   gomonobold.TTF,
	"gomono-italic": gomonoitalic.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:gomono" 或直接 "gomono"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimPrefix(name, "embed:"))
	if key == "" {
		key = Default
	}
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("未知的内置字体 %s（可选: %s）", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 列出全部内置字体名称。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
