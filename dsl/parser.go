package dsl

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/codeshape/shape"
)

// FormatVersion 是 Format 写出的版本标识。
const FormatVersion = "v1"

const identPattern = `[A-Za-z_][A-Za-z0-9_-]*`

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d*|\.\d+|\d+)`},
		{Name: "Ident", Pattern: identPattern},
		{Name: "Symbol", Pattern: `[][,;]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	identRe = regexp.MustCompile(`^` + identPattern + `$`)

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node for a shape file.
type Document struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"Newline* 'shape' @Ident"`
	Version string         `parser:"@Ident"`
	Columns int            `parser:"( 'columns' @Number )?"`
	Rows    []*Row         `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`
}

// Row is one scan line; an empty row has no spans.
type Row struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Spans []*Span        `parser:"'row' @@*"`
}

// Span is a `[start, end]` pair of row-width fractions.
type Span struct {
	Start float64 `parser:"'[' @Number"`
	End   float64 `parser:"',' @Number ']'"`
}

// Parse parses a shape file from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString parses a shape file from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

// Shape 把语法树转换为剪影数据并校验区间。
func (d *Document) Shape() (shape.Data, error) {
	data := shape.Data{Columns: d.Columns, Lines: make([]shape.Line, len(d.Rows))}
	for i, row := range d.Rows {
		line := make(shape.Line, 0, len(row.Spans))
		for _, sp := range row.Spans {
			line = append(line, shape.Run{Start: sp.Start, End: sp.End})
		}
		data.Lines[i] = line
	}
	if err := data.Validate(); err != nil {
		return shape.Data{}, fmt.Errorf("形状 %s: %w", d.Name, err)
	}
	return data, nil
}

// Format 以 shape 文件语法写出剪影数据，结果可被 Parse 读回。
func Format(w io.Writer, name string, data shape.Data) error {
	if !ValidName(name) {
		return fmt.Errorf("形状名称非法: %q", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "shape %s %s", name, FormatVersion)
	if data.Columns > 0 {
		fmt.Fprintf(&b, " columns %d", data.Columns)
	}
	b.WriteString(" {\n")
	for _, line := range data.Lines {
		b.WriteString("  row")
		for _, run := range line {
			fmt.Fprintf(&b, " [%s, %s]", formatFraction(run.Start), formatFraction(run.End))
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// ValidName 判断 name 能否作为 shape 文件中的名称。
func ValidName(name string) bool { return identRe.MatchString(name) }

func formatFraction(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
