package renderer

import (
	"fmt"

	"github.com/ByLCY/codeshape/layout"
)

// Renderer 将排版结果输出为最终文件，例如纯文本、PDF 或图像。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// Text 原样输出排版文本。
type Text struct{}

var _ Renderer = Text{}

func (Text) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	return []byte(result.Text), nil
}
