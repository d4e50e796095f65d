package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/ByLCY/codeshape/config"
	"github.com/ByLCY/codeshape/dsl"
	"github.com/ByLCY/codeshape/frames"
	"github.com/ByLCY/codeshape/layout"
	"github.com/ByLCY/codeshape/preview"
	"github.com/ByLCY/codeshape/renderer"
	canvasrenderer "github.com/ByLCY/codeshape/renderer/canvas"
	"github.com/ByLCY/codeshape/segment"
	"github.com/ByLCY/codeshape/shape"
)

// 非终端输出且未配置宽度时使用的列数。
const defaultColumns = 100

type cliOptions struct {
	input      string
	image      string
	word       string
	shapeFile  string
	cube       bool
	luaScript  string
	output     string
	debug      string
	shapeOut   string
	configPath string
	columns    int
	copy       bool
	live       bool
}

func main() {
	var opts cliOptions
	flag.StringVar(&opts.input, "in", "", "JavaScript 源码路径，- 表示标准输入")
	flag.StringVar(&opts.image, "image", "", "剪影图片路径（png/jpeg/gif）")
	flag.StringVar(&opts.word, "word", "", "以竖排单词（最多 6 个字符）作为剪影")
	flag.StringVar(&opts.shapeFile, "shape", "", "shape 文件路径")
	flag.BoolVar(&opts.cube, "cube", false, "使用旋转立方体作为剪影")
	flag.StringVar(&opts.luaScript, "lua", "", "定义 ink(u, v, t) 的 Lua 脚本路径")
	flag.StringVar(&opts.output, "out", "", "输出路径（.txt/.pdf/.png），为空时写到标准输出")
	flag.StringVar(&opts.debug, "debug", "", "排版调试 JSON 输出路径")
	flag.StringVar(&opts.shapeOut, "shape-out", "", "将提取的剪影写为 shape 文件")
	flag.StringVar(&opts.configPath, "config", "", "TOML 配置文件路径")
	flag.IntVar(&opts.columns, "width", 0, "渲染宽度（字符数），覆盖配置与终端宽度")
	flag.BoolVar(&opts.copy, "copy", false, "将结果复制到剪贴板")
	flag.BoolVar(&opts.live, "live", false, "在终端中实时预览动画剪影")
	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := run(opts, cfg); err != nil {
		log.Fatalf("生成失败: %v", err)
	}
}

// run 串联拆分、剪影提取、排版与输出。
func run(opts cliOptions, cfg *config.Config) error {
	code, err := readInput(opts.input)
	if err != nil {
		return err
	}
	parts, err := segment.Generate(code, cfg.SegmentOptions())
	if err != nil {
		return fmt.Errorf("拆分代码失败: %w", err)
	}

	layoutOpts, err := cfg.LayoutOptions()
	if err != nil {
		return err
	}
	autoWidth := resolveRenderWidth(&layoutOpts, opts.columns)
	shapeOpts, err := cfg.ShapeOptions()
	if err != nil {
		return err
	}

	if opts.live {
		return runLive(opts, cfg, parts, shapeOpts, layoutOpts, autoWidth)
	}

	data, err := loadShape(opts, shapeOpts)
	if err != nil {
		return err
	}
	if opts.shapeOut != "" {
		if err := writeShape(opts.shapeOut, data); err != nil {
			return err
		}
	}

	layoutOpts.Debug.KeepSegments = opts.debug != ""
	result, err := layout.Build(segment.NewSequence(parts), data, layoutOpts)
	if err != nil {
		return fmt.Errorf("排版失败: %w", err)
	}
	if opts.debug != "" {
		if err := writeDebug(result, data, opts.debug); err != nil {
			return err
		}
	}

	r, err := pickRenderer(opts.output, cfg)
	if err != nil {
		return err
	}
	out, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := writeOutput(opts.output, out); err != nil {
		return err
	}
	if opts.copy {
		if err := clipboard.WriteAll(result.Text); err != nil {
			return fmt.Errorf("复制到剪贴板失败: %w", err)
		}
	}
	if opts.output != "" {
		log.Printf("已生成 %s：%d 行 × %d 列，遍数 %d，切分 %d", opts.output, len(result.Lines), result.Columns(), result.Passes, result.Splits)
	}
	return nil
}

func runLive(opts cliOptions, cfg *config.Config, parts []string, shapeOpts shape.Options, layoutOpts layout.Options, autoWidth bool) error {
	if opts.shapeFile != "" {
		return fmt.Errorf("-live 需要图片、单词、立方体或 Lua 帧来源")
	}
	src, closeSrc, err := openSource(opts)
	if err != nil {
		return err
	}
	defer closeSrc()
	interval, err := cfg.LiveInterval()
	if err != nil {
		return err
	}
	text, err := preview.Run(preview.Options{
		Source:    src,
		Parts:     parts,
		Shape:     shapeOpts,
		Layout:    layoutOpts,
		Interval:  interval,
		Frames:    cfg.Live.Frames,
		AutoWidth: autoWidth,
	})
	if err != nil {
		return fmt.Errorf("实时预览失败: %w", err)
	}
	if opts.copy && text != "" {
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("复制到剪贴板失败: %w", err)
		}
	}
	return nil
}

func readInput(path string) (string, error) {
	switch path {
	case "":
		return "", fmt.Errorf("缺少 -in 源码路径")
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("读取标准输入失败: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("无法读取源码 %s: %w", path, err)
	}
	return string(data), nil
}

// resolveRenderWidth 依次采用 -width、配置、终端宽度与默认列数。返回是否跟随终端宽度。
func resolveRenderWidth(opts *layout.Options, columns int) bool {
	if columns > 0 {
		opts.RenderWidth = float64(columns) * opts.CharWidth
		return false
	}
	if opts.RenderWidth > 0 {
		return false
	}
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			opts.RenderWidth = float64(w) * opts.CharWidth
			return true
		}
	}
	opts.RenderWidth = defaultColumns * opts.CharWidth
	return false
}

// openSource 根据参数选择唯一的帧来源，返回的 close 函数总是可以调用。
func openSource(opts cliOptions) (frames.Source, func(), error) {
	noop := func() {}
	chosen := 0
	for _, set := range []bool{opts.image != "", opts.word != "", opts.cube, opts.luaScript != ""} {
		if set {
			chosen++
		}
	}
	if chosen != 1 {
		return nil, noop, fmt.Errorf("-image、-word、-cube、-lua 必须且只能指定一个")
	}
	switch {
	case opts.image != "":
		src, err := frames.Load(opts.image)
		return src, noop, err
	case opts.word != "":
		src, err := frames.NewWord(opts.word)
		return src, noop, err
	case opts.cube:
		return frames.NewCube(), noop, nil
	default:
		script, err := os.ReadFile(opts.luaScript)
		if err != nil {
			return nil, noop, fmt.Errorf("无法读取 Lua 脚本 %s: %w", opts.luaScript, err)
		}
		src, err := frames.NewLua(string(script), 0, 0)
		if err != nil {
			return nil, noop, err
		}
		return src, src.Close, nil
	}
}

func loadShape(opts cliOptions, shapeOpts shape.Options) (shape.Data, error) {
	if opts.shapeFile != "" {
		if opts.image != "" || opts.word != "" || opts.cube || opts.luaScript != "" {
			return shape.Data{}, fmt.Errorf("-shape 不能与其他剪影来源同时使用")
		}
		file, err := os.Open(opts.shapeFile)
		if err != nil {
			return shape.Data{}, fmt.Errorf("无法打开 shape 文件 %s: %w", opts.shapeFile, err)
		}
		defer file.Close()
		doc, err := dsl.Parse(file)
		if err != nil {
			return shape.Data{}, fmt.Errorf("解析 shape 文件失败: %w", err)
		}
		return doc.Shape()
	}

	src, closeSrc, err := openSource(opts)
	if err != nil {
		return shape.Data{}, err
	}
	defer closeSrc()
	img, err := src.Frame()
	if err != nil {
		return shape.Data{}, fmt.Errorf("获取剪影帧失败: %w", err)
	}
	return shape.Extract(img, shapeOpts), nil
}

func writeShape(path string, data shape.Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建 shape 输出目录失败: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !dsl.ValidName(name) {
		name = "extracted"
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 shape 文件失败: %w", err)
	}
	if err := dsl.Format(file, name, data); err != nil {
		file.Close()
		return fmt.Errorf("写入 shape 文件失败: %w", err)
	}
	return file.Close()
}

// pickRenderer 按输出扩展名选择渲染器：.pdf/.png 使用 canvas，其余输出纯文本。
func pickRenderer(output string, cfg *config.Config) (renderer.Renderer, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(output), "."))
	switch ext {
	case canvasrenderer.FormatPDF, canvasrenderer.FormatPNG:
		ropts, err := cfg.RendererOptions()
		if err != nil {
			return nil, err
		}
		ropts.Format = ext
		if output != "" {
			ropts.BaseDir = filepath.Dir(output)
		}
		return canvasrenderer.NewRenderer(ropts), nil
	default:
		return renderer.Text{}, nil
	}
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

// writeDebug 写出排版调试 JSON，剪影数据写到同目录的 <name>.shape.json。
func writeDebug(result *layout.Result, data shape.Data, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	shapePath := strings.TrimSuffix(debugPath, filepath.Ext(debugPath)) + ".shape.json"
	if err := shape.WriteDebugJSON(data, shapePath); err != nil {
		return fmt.Errorf("输出剪影调试 JSON 失败: %w", err)
	}
	return nil
}
