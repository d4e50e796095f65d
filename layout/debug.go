package layout

import (
	"bytes"
	"encoding/json"
	"os"
)

// WriteDebugJSON 将排版结果输出为 JSON，便于调试或可视化。
// 代码中的 <、>、& 原样保留，不做 HTML 转义。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
