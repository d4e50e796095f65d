package segment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2"
)

const windowSize = 10

// ParseError 表示源码无法解析。校验阶段的解析失败会附带出错位置前后的片段。
type ParseError struct {
	Line    int
	Column  int
	Message string
	Before  []string
	At      string
	After   []string
	Err     error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("解析失败 (%d:%d): %s", e.Line, e.Column, e.Message)
	if e.At != "" || len(e.Before) > 0 {
		msg += fmt.Sprintf(" [前: %q 处: %q 后: %q]", strings.Join(e.Before, " "), e.At, strings.Join(e.After, " "))
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// MismatchError 表示拆分后重新拼接的代码与原代码规范化结果不一致，说明拆分规则改变了语义。
type MismatchError struct {
	Offset int    // 规范化文本中第一个不同的字节位置
	Want   string // 原代码规范化结果在 Offset 附近的内容
	Got    string // 拼接代码规范化结果在 Offset 附近的内容
	Before []string
	At     string
	After  []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("片段拼接后代码不一致 (offset %d): want %q, got %q, 片段 %q",
		e.Offset, e.Want, e.Got, e.At)
}

func newParseError(err error) *ParseError {
	pe := &ParseError{Message: err.Error(), Err: err}
	var perr *parse.Error
	if errors.As(err, &perr) {
		pe.Line, pe.Column, pe.Message = perr.Line, perr.Column, perr.Message
	}
	return pe
}

// attachWindow 记录 idx 前后各 windowSize 个片段。
func attachWindow(parts []string, idx int) (before []string, at string, after []string) {
	if len(parts) == 0 {
		return nil, "", nil
	}
	idx = min(max(idx, 0), len(parts)-1)
	before = append([]string(nil), parts[max(0, idx-windowSize):idx]...)
	after = append([]string(nil), parts[idx+1:min(len(parts), idx+1+windowSize)]...)
	return before, parts[idx], after
}
