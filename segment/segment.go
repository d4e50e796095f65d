package segment

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// Options 控制拆分行为。
type Options struct {
	// SkipValidation 跳过拼接回读校验，仅在性能敏感时使用。
	SkipValidation bool
}

// 这些关键字之后的 / 开始一个正则字面量而不是除号。
var regexpKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

type token struct {
	tt   js.TokenType
	text string
	// stmtEnd 标记结束语句头（if (...)）或语句块的 ) 与 }，其后的 / 开始正则
	stmtEnd bool
}

// Generate 将 JavaScript 源码拆分为可任意拼接的原子片段。
//
// 流程：解析 → 为 return 表达式加括号 → 重新生成代码 → 词法切分 → 合并不可拆分的相邻词。
// 未设置 SkipValidation 时，会把片段以空格拼接并与原代码的规范化结果逐字比较。
func Generate(code string, opts Options) ([]string, error) {
	printed, err := wrapReturns(code)
	if err != nil {
		return nil, err
	}
	toks, err := tokenize(printed)
	if err != nil {
		return nil, newParseError(err)
	}
	parts := merge(toks)
	if !opts.SkipValidation {
		if err := validate(code, parts); err != nil {
			return nil, err
		}
	}
	return parts, nil
}

// wrapReturns 给每个 return 的参数包上一层括号，避免后续在空白处断行时改变语句边界。
func wrapReturns(code string) (string, error) {
	ast, err := js.Parse(parse.NewInputString(code), js.Options{})
	if err != nil {
		return "", newParseError(err)
	}
	js.Walk(returnWrapper{}, &ast.BlockStmt)
	return ast.JSString(), nil
}

type returnWrapper struct{}

func (v returnWrapper) Enter(n js.INode) js.IVisitor {
	if ret, ok := n.(*js.ReturnStmt); ok && ret.Value != nil {
		if _, grouped := ret.Value.(*js.GroupExpr); !grouped {
			ret.Value = &js.GroupExpr{X: ret.Value}
		}
	}
	return v
}

func (v returnWrapper) Exit(js.INode) {}

// tokenize 按词法切分代码，丢弃空白；单行注释改写为块注释，防止拼接后吞掉后续代码。
func tokenize(code string) ([]token, error) {
	l := js.NewLexer(parse.NewInputString(code))
	var toks []token
	var prev token
	var nest nesting
	for {
		tt, data := l.Next()
		if tt == js.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return toks, nil
		}
		if (tt == js.DivToken || tt == js.DivEqToken) && regexpAllowed(prev) {
			tt, data = l.RegExp()
			if tt == js.ErrorToken {
				if err := l.Err(); err != nil && err != io.EOF {
					return nil, err
				}
				return nil, fmt.Errorf("无法识别的正则字面量")
			}
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if strings.HasPrefix(text, "//") || strings.HasPrefix(text, "/*") {
			comment, ok := blockComment(text)
			if !ok {
				continue
			}
			toks = append(toks, token{tt: tt, text: comment})
			continue
		}
		cur := token{tt: tt, text: text}
		cur.stmtEnd = nest.track(prev, text)
		prev = cur
		toks = append(toks, prev)
	}
}

// 括号的种类：语句头 if (...)、函数参数或普通表达式。
type parenKind int

const (
	parenExpr parenKind = iota
	parenHead
	parenFuncDecl
	parenFuncExpr
)

var statementHeads = map[string]bool{
	"if": true, "while": true, "for": true, "with": true, "switch": true, "catch": true,
}

// nesting 记录未闭合的 ( 与 {，用来判断 ) 或 } 之后能否开始一个新语句。
type nesting struct {
	parens    []parenKind
	braces    []bool // true 表示语句块
	lastParen parenKind
	function  parenKind // 遇到 function 后等待其参数列表
	class     bool      // 遇到 class 声明后等待其类体
}

// track 处理一个有效词，返回它是否为结束语句头或语句块的 ) / }。
func (n *nesting) track(prev token, text string) bool {
	switch text {
	case "function":
		n.function = parenFuncExpr
		if statementStart(prev) {
			n.function = parenFuncDecl
		}
	case "class":
		n.class = statementStart(prev)
	case "(":
		kind := parenExpr
		switch {
		case statementHeads[prev.text]:
			kind = parenHead
		case n.function != parenExpr:
			kind = n.function
		}
		n.function = parenExpr
		n.parens = append(n.parens, kind)
	case ")":
		n.lastParen = parenExpr
		if len(n.parens) > 0 {
			n.lastParen = n.parens[len(n.parens)-1]
			n.parens = n.parens[:len(n.parens)-1]
		}
		return n.lastParen == parenHead
	case "{":
		block := statementStart(prev) || n.class
		switch prev.text {
		case ")":
			block = n.lastParen == parenHead || n.lastParen == parenFuncDecl
		case "else", "do", "try", "finally":
			block = true
		}
		n.class = false
		n.braces = append(n.braces, block)
	case "}":
		if len(n.braces) == 0 {
			return false
		}
		block := n.braces[len(n.braces)-1]
		n.braces = n.braces[:len(n.braces)-1]
		return block
	}
	return false
}

// statementStart 判断 prev 之后是否处在语句开头。
func statementStart(prev token) bool {
	switch prev.text {
	case "", ";", "{":
		return true
	case ")", "}":
		return prev.stmtEnd
	case "else", "do":
		return true
	}
	return false
}

func blockComment(text string) (string, bool) {
	if strings.HasPrefix(text, "/*") {
		return text, true
	}
	body := strings.TrimRight(strings.TrimPrefix(text, "//"), "\r\n")
	if strings.Contains(body, "*/") {
		return "", false
	}
	return "/*" + body + "*/", true
}

// regexpAllowed 根据前一个有效词判断当前位置的 / 是否开始正则字面量。
func regexpAllowed(prev token) bool {
	if prev.text == "" {
		return true
	}
	if prev.tt == js.RegExpToken {
		return false
	}
	switch prev.text {
	case ")", "}":
		return prev.stmtEnd
	case "]", "++", "--":
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(prev.text)
	switch last {
	case '"', '\'', '`':
		return false
	}
	if IsIdentifierChar(last) {
		return regexpKeywords[prev.text]
	}
	return true
}

// merge 合并不能被拆开的相邻词：return (、后缀 ++/--、throw 与其操作数，
// 以及换行会改变含义的 => 与 break/continue 标签。
func merge(toks []token) []string {
	parts := make([]string, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		cur := toks[i].text
		next := ""
		if i+1 < len(toks) {
			next = toks[i+1].text
		}
		switch {
		case cur == "return" && next == "(",
			next == "++" || next == "--",
			next == "=>",
			cur == "throw" && next != "",
			(cur == "break" || cur == "continue") && i+1 < len(toks) && js.IsIdentifier(toks[i+1].tt):
			parts = append(parts, cur+" "+next)
			i++
		default:
			parts = append(parts, cur)
		}
	}
	return parts
}
