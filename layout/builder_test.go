package layout

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/codeshape/segment"
	"github.com/ByLCY/codeshape/shape"
)

func oneRun(start, end float64) shape.Data {
	return shape.Data{Lines: []shape.Line{{{Start: start, End: end}}}}
}

func unitOpts(renderWidth float64) Options {
	return Options{CharWidth: 1, RenderWidth: renderWidth}
}

// 序列很短时全部落在第一行，之后仍追加三行空行。
func TestBuildShortCodeFitsFirstRun(t *testing.T) {
	seq := segment.NewSequence([]string{"x", "=", "1", ";"})
	res, err := Build(seq, oneRun(0, 0.5), unitOpts(10))
	require.NoError(t, err)

	assert.Equal(t, []string{"x=1;", "", "", ""}, res.Lines)
	assert.Equal(t, "x=1;\n\n\n\n", res.Text)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 1, res.ShapeLines)
	assert.Equal(t, 0, res.TailLines)
	assert.Equal(t, 0, res.Splits)
	assert.Equal(t, 1, res.Meta.Rows)
}

// 形状遍数用尽后，剩余片段在三行空行之后按整行宽度排出。
func TestBuildLongCodeOverflowsToTail(t *testing.T) {
	var parts []string
	for i := 0; i < 20; i++ {
		parts = append(parts, "a", ";")
	}
	opts := unitOpts(10)
	opts.MaxPasses = 1
	res, err := Build(segment.NewSequence(parts), oneRun(0, 0.5), opts)
	require.NoError(t, err)

	want := []string{
		"a;a;a",
		"", "", "",
		";a;a;a;a;a",
		";a;a;a;a;a",
		";a;a;a;a;a",
		";a;a;",
	}
	assert.Equal(t, want, res.Lines)
	assert.Equal(t, 1, res.ShapeLines)
	assert.Equal(t, 4, res.TailLines)
	for _, ln := range res.Lines[4:] {
		assert.LessOrEqual(t, utf8.RuneCountInString(ln), 10)
	}
}

func TestBuildRepeatsShapeUntilExhausted(t *testing.T) {
	var parts []string
	for i := 0; i < 6; i++ {
		parts = append(parts, "a", ";")
	}
	res, err := Build(segment.NewSequence(parts), oneRun(0.2, 0.6), unitOpts(10))
	require.NoError(t, err)

	// 每遍在 [2,6) 内放 4 个字符，共三遍
	assert.Equal(t, []string{"  a;a;", "  a;a;", "  a;a;", "", "", ""}, res.Lines)
	assert.Equal(t, 3, res.Passes)
	assert.Equal(t, 3, res.ShapeLines)
}

// 剩余宽度按间隙均分，余数从倒数第二个间隙向前分配。
func TestBuildJustifiesRun(t *testing.T) {
	seq := segment.NewSequence([]string{"aaa", "=", "bbb", "cccc"})
	opts := unitOpts(10)
	opts.MaxPasses = 1
	res, err := Build(seq, oneRun(0, 1), opts)
	require.NoError(t, err)

	require.NotEmpty(t, res.Lines)
	assert.Equal(t, "aaa =  bbb", res.Lines[0])
	assert.Equal(t, "cccc", res.Lines[len(res.Lines)-1])
}

func TestJustifyDistributesRemainder(t *testing.T) {
	e := &engine{charWidth: 1}
	got := strings.Join(e.justify([]string{"a", "b", "c", "d"}, 5), "")
	assert.Equal(t, "a  b c  d", got)

	assert.Equal(t, []string{"solo"}, e.justify([]string{"solo"}, 8))
	assert.Equal(t, []string{"a", "b"}, e.justify([]string{"a", "b"}, 0))
}

func TestBuildSplitsStringLiteral(t *testing.T) {
	seq := segment.NewSequence([]string{`"hello world"`})
	opts := unitOpts(10)
	opts.MaxPasses = 1
	res, err := Build(seq, oneRun(0, 0.6), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{`"hell"`, "", "", "", `+"o world"`}, res.Lines)
	assert.Equal(t, 1, res.Splits)
	assert.Equal(t, 2, res.Segments)
}

func TestSplitLiteral(t *testing.T) {
	e := &engine{seq: segment.NewSequence([]string{`"hello world"`}), charWidth: 1}
	got := e.splitLiteral(`"`, []rune("hello world"), 6)
	assert.Equal(t, `"hell"`, got)
	assert.Equal(t, []string{"+", `"o world"`}, e.seq.Items())
	assert.Equal(t, 1, e.splits)
}

func TestSplitLiteralOnlyQuotesFit(t *testing.T) {
	e := &engine{seq: segment.NewSequence([]string{`'abc'`}), charWidth: 1}
	got := e.splitLiteral(`'`, []rune("abc"), 2.5)
	assert.Equal(t, `''`, got)
	assert.Equal(t, []string{"+", `'abc'`}, e.seq.Items())
}

// 切点落在转义符之后时回退一位，不拆开转义序列。
func TestSplitLiteralKeepsEscapes(t *testing.T) {
	e := &engine{seq: segment.NewSequence([]string{`"ab\ncd"`}), charWidth: 1}
	got := e.splitLiteral(`"`, []rune(`ab\ncd`), 5)
	assert.Equal(t, `"ab"`, got)
	assert.Equal(t, []string{"+", `"\ncd"`}, e.seq.Items())

	e = &engine{seq: segment.NewSequence([]string{`"a\\b"`}), charWidth: 1}
	got = e.splitLiteral(`"`, []rune(`a\\b`), 5)
	assert.Equal(t, `"a\\"`, got)
	assert.Equal(t, []string{"+", `"b"`}, e.seq.Items())
}

// 前缀末尾的反斜杠属于被切开的转义序列时整段回退，不会转义掉收尾引号。
func TestSplitLiteralBacksOffEscapeRuns(t *testing.T) {
	cases := []struct {
		body   string
		dist   float64
		prefix string
		rest   string
	}{
		{`a\\\nb`, 6, `"a\\"`, `"\nb"`},
		{`a\\\\b`, 7, `"a\\\\"`, `"b"`},
		{`ab\x41c`, 6, `"ab"`, `"\x41c"`},
		{`a\u00e9b`, 7, `"a"`, `"\u00e9b"`},
		{`a\u{1F600}b`, 9, `"a"`, `"\u{1F600}b"`},
		{`\nab`, 3, `""`, `"\nab"`},
	}
	for _, c := range cases {
		lit := `"` + c.body + `"`
		e := &engine{seq: segment.NewSequence([]string{lit}), charWidth: 1}
		got := e.splitLiteral(`"`, []rune(c.body), c.dist)
		assert.Equal(t, c.prefix, got, c.body)
		assert.Equal(t, []string{"+", c.rest}, e.seq.Items(), c.body)
	}
}

func TestSplittableLiteral(t *testing.T) {
	cases := []struct {
		piece string
		ok    bool
	}{
		{`"abc"`, true},
		{`'abc'`, true},
		{`""`, true},
		{`"use strict"`, false},
		{"`tpl`", false},
		{`"abc'`, false},
		{`abc`, false},
		{`"`, false},
	}
	for _, c := range cases {
		_, _, ok := splittableLiteral(c.piece)
		assert.Equal(t, c.ok, ok, c.piece)
	}
}

func TestBuildKeepsUseStrictWhole(t *testing.T) {
	seq := segment.NewSequence([]string{`"use strict"`, ";"})
	res, err := Build(seq, oneRun(0, 0.5), unitOpts(10))
	require.NoError(t, err)

	assert.Equal(t, []string{"", "", "", "", `"use strict"`, ";"}, res.Lines)
	assert.Equal(t, 0, res.Splits)
}

// 区间为空时允许首个片段超出不足 5%。
func TestBuildOverflowTolerance(t *testing.T) {
	word := strings.Repeat("w", 41)
	res, err := Build(segment.NewSequence([]string{word}), oneRun(0, 0.4), unitOpts(100))
	require.NoError(t, err)
	assert.Equal(t, word, res.Lines[0])
	assert.Equal(t, 1, res.ShapeLines)

	wide := strings.Repeat("w", 50)
	res, err = Build(segment.NewSequence([]string{wide}), oneRun(0, 0.4), unitOpts(100))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", "", wide}, res.Lines)
}

func TestBuildEmptyShapeTerminates(t *testing.T) {
	data := shape.Data{Lines: []shape.Line{{}, {}}}
	res, err := Build(segment.NewSequence([]string{"a", ";"}), data, unitOpts(10))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", "", "", "a;"}, res.Lines)
	assert.Equal(t, 2, res.ShapeLines)
}

// 无法切分且比整行还宽的片段被强制放入尾部，不会死循环。
func TestBuildTooWideTokenInTail(t *testing.T) {
	long := strings.Repeat("z", 25)
	res, err := Build(segment.NewSequence([]string{"a", long, ";"}), shape.Data{}, unitOpts(10))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", "a", long, ";"}, res.Lines)
}

func TestBuildPreservesContent(t *testing.T) {
	code := "function add(a, b) { return a + b; } var total = 0; for (var i = 0; i < 10; i++) { total = add(total, i); }"
	parts, err := segment.Generate(code, segment.Options{})
	require.NoError(t, err)

	data := shape.Data{Lines: []shape.Line{
		{{Start: 0.1, End: 0.4}, {Start: 0.5, End: 0.9}},
		{{Start: 0.2, End: 0.8}},
	}}
	res, err := Build(segment.NewSequence(parts), data, Options{CharWidth: 2, RenderWidth: 60})
	require.NoError(t, err)

	squash := func(s string) string { return strings.Join(strings.Fields(s), "") }
	assert.Equal(t, squash(strings.Join(parts, "")), squash(res.Text))
	want, err := segment.Canonical(code)
	require.NoError(t, err)
	got, err := segment.Canonical(res.Text)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, res.Splits)
}

func TestBuildKeepsSegmentsForDebug(t *testing.T) {
	opts := unitOpts(10)
	opts.Debug.KeepSegments = true
	res, err := Build(segment.NewSequence([]string{"a", ";"}), oneRun(0, 1), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Debug)
	assert.Equal(t, []string{"a", ";"}, res.Debug.Segments)
}

func TestWriteDebugJSONKeepsCode(t *testing.T) {
	res, err := Build(segment.NewSequence([]string{"a<b", "&&", "c", ";"}), oneRun(0, 1), unitOpts(40))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "debug.json")
	require.NoError(t, WriteDebugJSON(res, path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "a<b&&c;")
	assert.NoError(t, WriteDebugJSON(nil, path))
}

func TestBuildPreconditions(t *testing.T) {
	_, err := Build(nil, oneRun(0, 1), unitOpts(10))
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = Build(segment.NewSequence([]string{"a"}), oneRun(0, 1), Options{CharWidth: 0, RenderWidth: 10})
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = Build(segment.NewSequence([]string{"a"}), oneRun(0.5, 0.5), unitOpts(10))
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestBuildOverrun(t *testing.T) {
	parts := make([]string, 1500)
	for i := range parts {
		parts[i] = ";"
	}
	_, err := Build(segment.NewSequence(parts), oneRun(0, 1), unitOpts(5000))
	assert.ErrorIs(t, err, ErrOverrun)
}

func TestRender(t *testing.T) {
	text, err := Render(segment.NewSequence([]string{"x", ";"}), oneRun(0, 1), unitOpts(10))
	require.NoError(t, err)
	assert.Equal(t, "x;\n\n\n\n", text)
}

// 同一行相邻区间的间隔不足一个字符时，标识符之间仍保留空格。
func TestBuildKeepsTokensApartAcrossRuns(t *testing.T) {
	seq := segment.NewSequence([]string{"let", "i", "=", "0", ";"})
	data := shape.Data{Lines: []shape.Line{{{Start: 0, End: 0.3}, {Start: 0.305, End: 0.6}}}}
	res, err := Build(seq, data, unitOpts(10))
	require.NoError(t, err)
	assert.Equal(t, "let i=", res.Lines[0])

	// 上一区间依靠 5% 容差越界后，下一区间紧贴其后
	long := "abcdefghijklmnopqrstuvwxyzabcde"
	seq = segment.NewSequence([]string{long, "vw", ";"})
	data = shape.Data{Lines: []shape.Line{{{Start: 0, End: 0.3}, {Start: 0.3, End: 0.36}}}}
	res, err = Build(seq, data, unitOpts(100))
	require.NoError(t, err)
	assert.Equal(t, long+" vw;", res.Lines[0])
}

var layoutPrograms = []string{
	`function fib(n) { if (n < 2) { return n; } return fib(n - 1) + fib(n - 2); } var out = fib(10);`,
	`var greeting = "hello, wide world of shaped code"; var path = "C:\\dir\\file\n\x41\u00e9 tail"; console.log(greeting + path);`,
	`let total = 0; for (let i = 0; i < 10; i++) { total += i * 2; } const double = (x) => x * 2; total = double(total);`,
	`var s = 'it\'s a \\ test with quotes'; outer: for (var k in obj) { if (k) continue outer; } if (s) /re/.test(s);`,
}

func randomShape(r *rand.Rand) shape.Data {
	rows := 1 + r.Intn(8)
	data := shape.Data{Lines: make([]shape.Line, rows)}
	for i := range data.Lines {
		n := r.Intn(4)
		cuts := make([]float64, 2*n)
		for j := range cuts {
			cuts[j] = r.Float64()
		}
		sort.Float64s(cuts)
		line := shape.Line{}
		for j := 0; j+1 < len(cuts); j += 2 {
			if cuts[j+1]-cuts[j] < 0.01 {
				continue
			}
			line = append(line, shape.Run{Start: cuts[j], End: cuts[j+1]})
		}
		data.Lines[i] = line
	}
	return data
}

// 随机剪影下：输出与原代码规范化后一致，且形状内每行不超过最后一个区间的 5% 容差。
func TestBuildRandomShapesKeepProgram(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, code := range layoutPrograms {
		parts, err := segment.Generate(code, segment.Options{})
		require.NoError(t, err, code)
		want, err := segment.Canonical(code)
		require.NoError(t, err)

		for trial := 0; trial < 60; trial++ {
			data := randomShape(r)
			rw := float64(24 + r.Intn(40))
			res, err := Build(segment.NewSequence(parts), data, unitOpts(rw))
			require.NoError(t, err)

			got, err := segment.Canonical(res.Text)
			require.NoError(t, err, "trial %d:\n%s", trial, res.Text)
			require.Equal(t, want, got, "trial %d:\n%s", trial, res.Text)

			for i := 0; i < res.ShapeLines; i++ {
				line := data.Lines[i%len(data.Lines)]
				limit := 0.0
				for _, run := range line {
					limit = max(limit, run.End*rw+overflowTolerance*(run.End-run.Start)*rw)
				}
				width := float64(utf8.RuneCountInString(strings.TrimRight(res.Lines[i], " ")))
				assert.LessOrEqual(t, width, math.Ceil(limit), "trial %d line %d %q", trial, i, res.Lines[i])
			}
		}
	}
}
