package shape

import (
	"encoding/json"
	"fmt"
)

// 该文件定义剪影数据：每一扫描行上的前景区间，坐标为行宽的比例。

// Run 表示某一行上一段连续的前景（墨迹）区间，Start/End 为 [0,1] 内的比例。
type Run struct {
	Start float64
	End   float64
}

// MarshalJSON 以 [start, end] 形式输出。
func (r Run) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Start, r.End})
}

// UnmarshalJSON 读取 [start, end] 形式。
func (r *Run) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("run 需要 [start, end]: %w", err)
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// Width 返回区间宽度（比例）。
func (r Run) Width() float64 { return r.End - r.Start }

// Line 是一行内从左到右的区间列表，可以为空。
type Line []Run

// Data 是自上而下的全部行。Columns 记录采样时的行宽（像素），仅供参考。
type Data struct {
	Lines   []Line `json:"lines"`
	Columns int    `json:"columns,omitempty"`
}

// RunCount 统计所有行中的区间数量。
func (d Data) RunCount() int {
	n := 0
	for _, ln := range d.Lines {
		n += len(ln)
	}
	return n
}

// Validate 检查区间单调、不重叠且位于 [0,1] 内。
func (d Data) Validate() error {
	for i, ln := range d.Lines {
		prevEnd := 0.0
		for k, run := range ln {
			if run.Start < 0 || run.End > 1 {
				return fmt.Errorf("第 %d 行第 %d 个区间越界: [%g, %g)", i, k, run.Start, run.End)
			}
			if run.End <= run.Start {
				return fmt.Errorf("第 %d 行第 %d 个区间为空: [%g, %g)", i, k, run.Start, run.End)
			}
			if k > 0 && run.Start < prevEnd {
				return fmt.Errorf("第 %d 行第 %d 个区间与前一区间重叠", i, k)
			}
			prevEnd = run.End
		}
	}
	return nil
}
