package frames

import (
	"fmt"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/codeshape/fonts"
)

// MaxWordLength 是单词剪影允许的最大字符数。
const MaxWordLength = 6

const (
	wordWidth    = 800.0
	wordFontSize = 800.0 // px，画布按 1 单位 = 1 像素栅格化
	wordStroke   = 60.0
	wordLeft     = 200.0
	wordGap      = 10.0
	wordBottom   = 400.0 // 末尾留白
	ptPerUnit    = 72.0 / 25.4
)

// Word 把一个短单词竖排绘制为剪影：每行一个字符，填充并描粗边。
// 画面只绘制一次，之后每帧返回同一张图。
type Word struct {
	text string
	img  image.Image
}

// NewWord 校验单词长度（去除首尾空白后 1 到 MaxWordLength 个字符）并绘制画面。
func NewWord(word string) (*Word, error) {
	word = strings.TrimSpace(word)
	switch n := utf8.RuneCountInString(word); {
	case n == 0:
		return nil, fmt.Errorf("单词不能为空")
	case n > MaxWordLength:
		return nil, fmt.Errorf("单词最多 %d 个字符，实际 %d 个", MaxWordLength, n)
	}
	img, err := drawWord(word)
	if err != nil {
		return nil, err
	}
	return &Word{text: word, img: img}, nil
}

// Text 返回绘制的单词。
func (w *Word) Text() string { return w.text }

func (w *Word) Frame() (image.Image, error) { return w.img, nil }

type wordGlyph struct {
	path    *canvas.Path
	ascent  float64
	descent float64
}

func drawWord(word string) (image.Image, error) {
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("word")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体失败: %w", err)
	}
	// Face 的字号单位为 pt，换算后字形高度以画布单位计为 800
	face := family.Face(wordFontSize*ptPerUnit, canvas.Black, canvas.FontRegular, canvas.FontNormal)

	glyphs := make([]wordGlyph, 0, len(word))
	height := wordBottom
	for _, r := range word {
		p, _, err := face.ToPath(string(r))
		if err != nil {
			return nil, fmt.Errorf("字符 %q 轮廓生成失败: %w", r, err)
		}
		b := p.Bounds()
		g := wordGlyph{path: p, ascent: max(b.Y1, 0), descent: max(-b.Y0, 0)}
		glyphs = append(glyphs, g)
		height += g.ascent + wordStroke + g.descent + wordGap
	}

	c := canvas.New(wordWidth, height)
	ctx := canvas.NewContext(c)
	ctx.SetFillColor(canvas.Black)
	ctx.SetStrokeColor(canvas.Black)
	ctx.SetStrokeWidth(wordStroke)
	ctx.SetStrokeJoiner(canvas.RoundJoin)

	// 字形轮廓 y 轴向上，这里按默认坐标系（原点在左下角）自顶向下排列
	top := 0.0
	for _, g := range glyphs {
		baseline := height - (top + g.ascent)
		ctx.DrawPath(wordLeft, baseline, g.path)
		top += g.ascent + wordStroke + g.descent + wordGap
	}
	return rasterizer.Draw(c, canvas.DPMM(1), canvas.DefaultColorSpace), nil
}
