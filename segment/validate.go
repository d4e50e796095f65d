package segment

import (
	"strings"

	"github.com/tdewolff/minify/v2"
	jsmin "github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

const mediaType = "application/javascript"

var canonicalMinifier = func() *minify.M {
	m := minify.New()
	m.Add(mediaType, &jsmin.Minifier{KeepVarNames: true})
	return m
}()

// Canonical 生成代码的规范化文本（去除注释、空白与多余括号），用于比较语义是否一致。
func Canonical(code string) (string, error) {
	out, err := canonicalMinifier.String(mediaType, code)
	if err != nil {
		return "", newParseError(err)
	}
	return out, nil
}

// validate 以单个空格拼接片段后重新解析，并与原代码的规范化结果逐字比较。
func validate(original string, parts []string) error {
	joined := strings.Join(parts, " ")
	if _, err := js.Parse(parse.NewInputString(joined), js.Options{}); err != nil {
		pe := newParseError(err)
		pe.Before, pe.At, pe.After = attachWindow(parts, partIndex(parts, offsetOf(joined, pe.Line, pe.Column)))
		return pe
	}
	got, err := Canonical(joined)
	if err != nil {
		return err
	}
	want, err := Canonical(original)
	if err != nil {
		return err
	}
	if got == want {
		return nil
	}
	off := firstDiff(want, got)
	me := &MismatchError{
		Offset: off,
		Want:   around(want, off),
		Got:    around(got, off),
	}
	// 规范化文本与片段没有直接映射，按比例估算出错片段
	idx := 0
	if len(got) > 0 {
		idx = off * len(parts) / len(got)
	}
	me.Before, me.At, me.After = attachWindow(parts, idx)
	return me
}

// offsetOf 把 1 起始的行列号换算成字节偏移。
func offsetOf(text string, line, col int) int {
	off := 0
	for i := 1; i < line; i++ {
		nl := strings.IndexByte(text[off:], '\n')
		if nl < 0 {
			break
		}
		off += nl + 1
	}
	return off + max(col-1, 0)
}

// partIndex 返回以单空格拼接后 offset 所在的片段下标。
func partIndex(parts []string, offset int) int {
	pos := 0
	for i, p := range parts {
		pos += len(p) + 1
		if offset < pos {
			return i
		}
	}
	return len(parts) - 1
}

func firstDiff(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func around(s string, off int) string {
	return s[max(0, off-20):min(len(s), off+20)]
}
