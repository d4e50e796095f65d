package layout

// 该文件定义排版结果，供输出、渲染与调试 JSON 共用。

// Result 保存排版后的文本块与统计信息。
type Result struct {
	Text       string   `json:"text"`
	Lines      []string `json:"lines"`
	Passes     int      `json:"passes"`     // 形状内实际遍历次数
	ShapeLines int      `json:"shapeLines"` // 形状阶段输出的行数
	TailLines  int      `json:"tailLines"`  // 溢出尾部输出的行数（不含分隔空行）
	Splits     int      `json:"splits"`     // 字符串字面量切分次数
	Segments   int      `json:"segments"`   // 排版结束时序列长度（含插入的 + 与切分片段）
	Meta       Meta     `json:"meta"`
	Debug      *Debug   `json:"debug,omitempty"`
}

// Meta 记录本次排版使用的尺寸。
type Meta struct {
	CharWidth   float64 `json:"charWidth"`
	RenderWidth float64 `json:"renderWidth"`
	Rows        int     `json:"rows"`
}

// Debug holds optional debug info enabled by Options.Debug.
type Debug struct {
	Segments []string `json:"segments,omitempty"`
}

// Columns 返回最长一行的字符数。
func (r *Result) Columns() int {
	n := 0
	for _, ln := range r.Lines {
		n = max(n, len([]rune(ln)))
	}
	return n
}
