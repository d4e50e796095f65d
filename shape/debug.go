package shape

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将剪影数据输出为 JSON，便于调试或可视化。
func WriteDebugJSON(data Data, path string) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
