package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/codeshape/fonts"
	"github.com/ByLCY/codeshape/layout"
	"github.com/ByLCY/codeshape/renderer"
)

// Output formats.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
)

const (
	defaultFontSize   = 10.0 // pt
	defaultMargin     = 10.0 // mm
	defaultResolution = 4.0  // dots per mm
)

// Renderer draws layout results as a monospace text block via github.com/tdewolff/canvas.
type Renderer struct {
	opts Options

	// injected resources
	fontBlobs map[string][]byte // by unique name

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	BaseDir    string
	Font       string                // embed:<name>, built-in:<name> or a path
	FontSize   float64               // pt
	LineHeight layout.LineHeightSpec // zero value uses the font's line height
	Margin     float64               // mm
	Format     string                // pdf or png
	Resolution float64               // png dots per mm
	Fonts      map[string]Resource   // built-in fonts accessible via built-in:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer with injected resources; zero fields take defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.Font == "" {
		opts.Font = "embed:" + fonts.Default
	}
	if opts.FontSize <= 0 {
		opts.FontSize = defaultFontSize
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	} else if opts.Margin == 0 {
		opts.Margin = defaultMargin
	}
	if opts.Format == "" {
		opts.Format = FormatPDF
	}
	if opts.Resolution <= 0 {
		opts.Resolution = defaultResolution
	}
	r := &Renderer{opts: opts, fontBlobs: map[string][]byte{}}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // ignore error here; will be caught when actually used
			if len(data) > 0 {
				r.fontBlobs[name] = data
			}
		}
	}
	return r
}

// Render draws the text block on a page sized to fit it and encodes it in the configured format.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Lines) == 0 {
		return nil, fmt.Errorf("缺少可渲染的文本行")
	}
	face, err := r.face()
	if err != nil {
		return nil, err
	}

	charWidth := face.TextWidth("M")
	lineHeight := r.lineHeight(face)
	cols := 0
	for _, ln := range result.Lines {
		cols = max(cols, utf8.RuneCountInString(ln))
	}
	margin := r.opts.Margin
	width := float64(cols)*charWidth + 2*margin
	height := float64(len(result.Lines))*lineHeight + 2*margin
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("页面尺寸非法: %gx%g", width, height)
	}

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与文本行保持左上角为原点
	ctx.SetFillColor(canvas.White)
	ctx.DrawPath(0, 0, canvas.Rectangle(width, height))

	ascent := face.Metrics().Ascent
	for i, ln := range result.Lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		// 基线位置：以行顶部加上字体上升部
		baseline := margin + float64(i)*lineHeight + ascent
		ctx.DrawText(margin, baseline, canvas.NewTextLine(face, ln, canvas.Left))
	}

	var buf bytes.Buffer
	switch r.opts.Format {
	case FormatPDF:
		writer := pdf.New(&buf, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	case FormatPNG:
		img := rasterizer.Draw(c, canvas.DPMM(r.opts.Resolution), canvas.DefaultColorSpace)
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("写入 PNG 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的输出格式: %s", r.opts.Format)
	}
	return buf.Bytes(), nil
}

// CharWidth 返回等宽字体单个字符的步进宽度（mm），可直接作为排版的字符宽度。
func (r *Renderer) CharWidth() (float64, error) {
	face, err := r.face()
	if err != nil {
		return 0, err
	}
	return face.TextWidth("M"), nil
}

// LineHeight 返回行高（mm）。
func (r *Renderer) LineHeight() (float64, error) {
	face, err := r.face()
	if err != nil {
		return 0, err
	}
	return r.lineHeight(face), nil
}

func (r *Renderer) lineHeight(face *canvas.FontFace) float64 {
	spec := r.opts.LineHeight
	if spec.Kind == layout.LineHeightFactor && spec.Factor <= 0 {
		return face.Metrics().LineHeight
	}
	size := layout.Length{Value: r.opts.FontSize, Unit: layout.UnitPT}
	return spec.Resolve(size, layout.UnitMM)
}

func (r *Renderer) face() (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily()
	if err != nil {
		return nil, err
	}
	return family.Face(r.opts.FontSize, canvas.Black, canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if r.family != nil {
		return r.family, nil
	}
	data, err := r.loadFontBytes(r.opts.Font)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("codeshape")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", r.opts.Font, err)
	}
	r.family = family
	return family, nil
}

func (r *Renderer) loadFontBytes(src string) ([]byte, error) {
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	// Path based
	path := src
	if r.opts.BaseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 built-in: 或 embed:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.opts.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	return data, nil
}
