package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/codeshape/segment"
	"github.com/ByLCY/codeshape/shape"
)

var (
	// ErrPrecondition 表示区间退化（endX <= startX）或参数非法，通常说明剪影数据有误。
	ErrPrecondition = errors.New("layout: 区间或参数非法")
	// ErrOverrun 表示单个区间内拉取片段超过上限，说明贪心/切分逻辑存在缺陷。
	ErrOverrun = errors.New("layout: 区间填充次数超限")
)

// Build 将片段序列排入剪影：先在形状内多遍贪心填充，再把剩余片段按整行宽度追加到尾部。
// seq 会被就地修改（切分字符串时插入片段），不能复用于下一次排版。
func Build(seq *segment.Sequence, data shape.Data, opts Options) (*Result, error) {
	if seq == nil {
		return nil, fmt.Errorf("%w: 片段序列为空", ErrPrecondition)
	}
	if opts.CharWidth <= 0 || opts.RenderWidth <= 0 {
		return nil, fmt.Errorf("%w: charWidth=%g renderWidth=%g", ErrPrecondition, opts.CharWidth, opts.RenderWidth)
	}

	e := &engine{seq: seq, charWidth: opts.CharWidth}
	out := &output{}
	passes, err := e.fillShape(data, opts, out)
	if err != nil {
		return nil, err
	}
	shapeLines := len(out.lines)

	for i := 0; i < tailGapLines; i++ {
		out.add("")
	}
	tail, err := e.fillTail(opts.RenderWidth, out)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Text:       out.text(),
		Lines:      out.lines,
		Passes:     passes,
		ShapeLines: shapeLines,
		TailLines:  tail,
		Splits:     e.splits,
		Segments:   seq.Len(),
		Meta: Meta{
			CharWidth:   opts.CharWidth,
			RenderWidth: opts.RenderWidth,
			Rows:        len(data.Lines),
		},
	}
	if opts.Debug.KeepSegments {
		res.Debug = &Debug{Segments: seq.Items()}
	}
	return res, nil
}

// Render 是 Build 的简化形式，只返回文本块。
func Render(seq *segment.Sequence, data shape.Data, opts Options) (string, error) {
	res, err := Build(seq, data, opts)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

type output struct {
	lines []string
}

func (o *output) add(line string) { o.lines = append(o.lines, line) }

// text 以换行连接各行，每行（包括最后一行）都以换行结尾。
func (o *output) text() string {
	var b strings.Builder
	for _, ln := range o.lines {
		b.WriteString(ln)
		b.WriteByte('\n')
	}
	return b.String()
}

type engine struct {
	seq       *segment.Sequence
	charWidth float64
	j         int // 序列游标
	splits    int
}

func (e *engine) done() bool { return e.j >= e.seq.Len() }

func (e *engine) widthOf(n int) float64 { return float64(n) * e.charWidth }

func (e *engine) partsWidth(parts []string) float64 {
	n := 0
	for _, p := range parts {
		n += utf8.RuneCountInString(p)
	}
	return e.widthOf(n)
}

// fillShape 是形状阶段：自上而下、自左而右逐区间填充，直到片段耗尽或遍数达到上限。
func (e *engine) fillShape(data shape.Data, opts Options, out *output) (int, error) {
	passes := 0
	for passes < opts.maxPasses() && !e.done() {
		passes++
		startJ, startSplits := e.j, e.splits
		for _, line := range data.Lines {
			var lineParts []string
			for _, run := range line {
				startX, endX := run.Start*opts.RenderWidth, run.End*opts.RenderWidth
				var parts []string
				var err error
				lineParts, parts, err = e.fillRun(lineParts, startX, endX)
				if err != nil {
					return passes, err
				}
				lineParts = append(lineParts, parts...)
				if e.done() {
					break
				}
			}
			out.add(strings.Join(lineParts, ""))
			if e.done() {
				return passes, nil
			}
		}
		// 整遍既未推进游标也未切分时，后续遍历只会重复相同的空行
		if e.j == startJ && e.splits == startSplits {
			break
		}
	}
	return passes, nil
}

// fillTail 是溢出阶段：剩余片段逐行按 [0, renderWidth) 排版，返回输出的行数。
func (e *engine) fillTail(renderWidth float64, out *output) (int, error) {
	lines := 0
	best := e.seq.Remaining(e.j)
	stall := 0
	for !e.done() {
		_, parts, err := e.fillRun(nil, 0, renderWidth)
		if err != nil {
			return lines, err
		}
		remaining := e.seq.Remaining(e.j)
		if remaining < best {
			best, stall = remaining, 0
		} else {
			stall++
		}
		// 片段比整行还宽且无法切分，或剩余文本迟迟不减少时，强制放入当前行，保证终止
		if !e.done() && (len(parts) == 0 || stall >= tailStallLines) {
			piece := e.seq.At(e.j)
			if len(parts) > 0 && segment.NeedsSpace(parts[len(parts)-1], piece) {
				parts = append(parts, " ")
			}
			parts = append(parts, piece)
			e.j++
			best, stall = e.seq.Remaining(e.j), 0
		}
		out.add(strings.Join(parts, ""))
		lines++
	}
	return lines, nil
}

// fillRun 为一个区间贪心拉取片段。lineParts 是本行已放置的内容（可能被补上前导空格），
// 返回更新后的 lineParts 以及本区间的片段（已两端对齐）。
func (e *engine) fillRun(lineParts []string, startX, endX float64) ([]string, []string, error) {
	if endX <= startX {
		return lineParts, nil, fmt.Errorf("%w: 区间 [%g, %g)", ErrPrecondition, startX, endX)
	}

	// 行首或区间之间的空白
	if x := e.partsWidth(lineParts); x < startX {
		n := int(math.Floor((startX - x) / e.charWidth))
		lineParts = append(lineParts, strings.Repeat(" ", n))
	}

	// 上一区间的末尾与本区间的第一个片段之间同样不能融合
	if !e.done() && segment.NeedsSpace(lastPlaced(lineParts), e.seq.At(e.j)) {
		lineParts = append(lineParts, " ")
	}

	lineWidth := e.partsWidth(lineParts)
	var parts []string
	pulls := 0

	for {
		x := lineWidth + e.partsWidth(parts)
		if x >= endX {
			break
		}
		if e.done() {
			return lineParts, parts, nil
		}

		piece := e.seq.At(e.j)
		needsSpace := len(parts) > 0 && segment.NeedsSpace(parts[len(parts)-1], piece)
		newEndX := math.Abs(x + e.widthOf(utf8.RuneCountInString(piece)))
		if needsSpace {
			newEndX += e.charWidth
		}

		if newEndX > endX {
			dist := endX - x
			if quote, body, ok := splittableLiteral(piece); ok && dist >= 2*e.charWidth {
				parts = append(parts, e.splitLiteral(quote, body, dist))
				break
			}
			targetWidth := endX - startX
			newWidth := newEndX - startX
			closePercent := newWidth/targetWidth - 1
			if !(closePercent < overflowTolerance && len(parts) == 0) {
				break
			}
		}

		if needsSpace {
			parts = append(parts, " ")
		}
		parts = append(parts, piece)
		e.j++

		pulls++
		if pulls >= maxPullsPerRun {
			return lineParts, parts, fmt.Errorf("%w: 区间 [%g, %g) 拉取 %d 次", ErrOverrun, startX, endX, pulls)
		}
	}

	return lineParts, e.justify(parts, endX-lineWidth-e.partsWidth(parts)), nil
}

// lastPlaced 返回本行最后一个非空的片段（补白也算）。
func lastPlaced(lineParts []string) string {
	for i := len(lineParts) - 1; i >= 0; i-- {
		if lineParts[i] != "" {
			return lineParts[i]
		}
	}
	return ""
}

// splitLiteral 把游标处的字符串字面量切成能放进 dist 的前缀，余下部分前插 + 后留在序列中。
func (e *engine) splitLiteral(quote string, body []rune, dist float64) string {
	e.splits++
	numChars := int(math.Floor(dist / e.charWidth))
	if numChars == 2 {
		// 只放得下一对引号：输出空串，整个字面量留到下一区间
		e.seq.Insert(e.j, "+")
		return quote + quote
	}

	take := min(numChars-2, len(body))
	// 切点不能落在转义序列内部（\\、\n、\x41、\u00e9、\u{1F600} 等）
	for i := 0; i < take; {
		if body[i] != '\\' {
			i++
			continue
		}
		end := escapeEnd(body, i)
		if end > take {
			take = i
			break
		}
		i = end
	}
	e.seq.Set(e.j, quote+string(body[take:])+quote)
	e.seq.Insert(e.j, "+")
	return quote + string(body[:take]) + quote
}

// escapeEnd 返回从 body[i]（反斜杠）开始的转义序列之后的下标。
func escapeEnd(body []rune, i int) int {
	n := len(body)
	if i+1 >= n {
		return n
	}
	switch c := body[i+1]; {
	case c == 'x':
		return min(i+4, n)
	case c == 'u' && i+2 < n && body[i+2] == '{':
		for j := i + 3; j < n; j++ {
			if body[j] == '}' {
				return j + 1
			}
		}
		return n
	case c == 'u':
		return min(i+6, n)
	case c >= '0' && c <= '7':
		j := i + 2
		for j < n && j < i+4 && body[j] >= '0' && body[j] <= '7' {
			j++
		}
		return j
	case c == '\r' && i+2 < n && body[i+2] == '\n':
		return i + 3
	}
	return i + 2
}

// splittableLiteral 判断片段是否为可切分的单/双引号字符串，"use strict" 指令不切分。
func splittableLiteral(piece string) (string, []rune, bool) {
	runes := []rune(piece)
	if len(runes) < 2 {
		return "", nil, false
	}
	first, last := runes[0], runes[len(runes)-1]
	if first != last || (first != '"' && first != '\'') {
		return "", nil, false
	}
	body := runes[1 : len(runes)-1]
	if string(body) == "use strict" {
		return "", nil, false
	}
	return string(first), body, true
}

// justify 把剩余宽度折算成空格，均匀插入片段之间。余数从倒数第二个间隙开始，
// 以 gaps/remainder 的非整数步长向前分配，避免空格集中在一处。
func (e *engine) justify(parts []string, slack float64) []string {
	if len(parts) <= 1 || slack <= 0 {
		return parts
	}
	numChars := int(math.Floor(slack / e.charWidth))
	gaps := len(parts) - 1
	perGap := numChars / gaps
	remainder := numChars - perGap*gaps

	spots := make([]int, gaps)
	for i := range spots {
		spots[i] = perGap
	}
	if remainder > 0 {
		pos := float64(len(parts) - 2)
		stride := float64(gaps) / float64(remainder)
		for i := 0; i < remainder; i++ {
			spots[max(int(math.Floor(pos)), 0)]++
			pos -= stride
		}
	}

	out := make([]string, 0, len(parts)+gaps)
	out = append(out, parts[0])
	for i, n := range spots {
		out = append(out, strings.Repeat(" ", n), parts[i+1])
	}
	return out
}
