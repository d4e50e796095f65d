// Package config 读取 TOML 配置文件并转换为各阶段的选项。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ByLCY/codeshape/layout"
	canvasrenderer "github.com/ByLCY/codeshape/renderer/canvas"
	"github.com/ByLCY/codeshape/segment"
	"github.com/ByLCY/codeshape/shape"
)

// Config 是配置文件的完整结构，未出现的字段保留 Default 中的值。
type Config struct {
	Layout  LayoutConfig  `toml:"layout"`
	Shape   ShapeConfig   `toml:"shape"`
	Segment SegmentConfig `toml:"segment"`
	Render  RenderConfig  `toml:"render"`
	Live    LiveConfig    `toml:"live"`
}

// LayoutConfig 中的宽度可带单位（如 "8px"、"2.1mm"）；不带单位时按字符格计算。
// 两个宽度必须同时带单位或同时不带。RenderWidth 为空表示由调用方决定（例如终端宽度）。
type LayoutConfig struct {
	CharWidth   string `toml:"char_width"`
	RenderWidth string `toml:"render_width"`
	MaxPasses   int    `toml:"max_passes"`
}

type ShapeConfig struct {
	Rows            int `toml:"rows"`
	ReferenceHeight int `toml:"reference_height"`
	InkMax          int `toml:"ink_max"`
	AlphaMin        int `toml:"alpha_min"`
}

type SegmentConfig struct {
	Validate bool `toml:"validate"`
}

type RenderConfig struct {
	Font       string  `toml:"font"`
	FontSize   string  `toml:"font_size"`
	LineHeight string  `toml:"line_height"`
	Margin     string  `toml:"margin"`
	Format     string  `toml:"format"`
	Resolution float64 `toml:"resolution"` // png 每毫米像素数
}

type LiveConfig struct {
	Interval string `toml:"interval"`
	Frames   int    `toml:"frames"` // 0 表示不限帧数
}

// Default 返回内置默认配置。
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			CharWidth: "1",
			MaxPasses: layout.DefaultMaxPasses,
		},
		Shape: ShapeConfig{
			Rows:            shape.DefaultRows,
			ReferenceHeight: shape.DefaultReferenceHeight,
			InkMax:          shape.DefaultInkMax,
			AlphaMin:        shape.DefaultAlphaMin,
		},
		Segment: SegmentConfig{Validate: true},
		Render: RenderConfig{
			Font:       "embed:gomono",
			FontSize:   "10pt",
			LineHeight: "1.2x",
			Margin:     "10mm",
			Format:     canvasrenderer.FormatPDF,
			Resolution: 4,
		},
		Live: LiveConfig{Interval: "100ms"},
	}
}

// Load 读取配置文件；path 为空时返回默认配置。未知字段视为错误。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("配置 %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置 %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 从字符串解析配置，规则同 Load。
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("未知配置项: %s", strings.Join(names, ", "))
}

// Validate 检查所有字段能否转换为合法的选项。
func (c *Config) Validate() error {
	if _, err := c.LayoutOptions(); err != nil {
		return err
	}
	if _, err := c.ShapeOptions(); err != nil {
		return err
	}
	if _, err := c.RendererOptions(); err != nil {
		return err
	}
	if _, err := c.LiveInterval(); err != nil {
		return err
	}
	if c.Live.Frames < 0 {
		return fmt.Errorf("live.frames 不能为负数: %d", c.Live.Frames)
	}
	return nil
}

// LayoutOptions 把宽度换算为排版选项。带单位的宽度统一换算为 px。
// render_width 为空时 RenderWidth 为 0，需要调用方补齐。
func (c *Config) LayoutOptions() (layout.Options, error) {
	cw := layout.ParseRawLengthStr(c.Layout.CharWidth)
	if cw.Value <= 0 {
		return layout.Options{}, fmt.Errorf("layout.char_width 必须为正数: %q", c.Layout.CharWidth)
	}
	opts := layout.Options{CharWidth: cw.ToPX(), MaxPasses: c.Layout.MaxPasses}
	if opts.MaxPasses < 0 {
		return layout.Options{}, fmt.Errorf("layout.max_passes 不能为负数: %d", opts.MaxPasses)
	}
	if strings.TrimSpace(c.Layout.RenderWidth) == "" {
		return opts, nil
	}
	rw := layout.ParseRawLengthStr(c.Layout.RenderWidth)
	if rw.Value <= 0 {
		return layout.Options{}, fmt.Errorf("layout.render_width 必须为正数: %q", c.Layout.RenderWidth)
	}
	if (cw.Unit == layout.UnitNone) != (rw.Unit == layout.UnitNone) {
		return layout.Options{}, fmt.Errorf("layout.char_width 与 layout.render_width 必须同时带单位或同时不带: %q, %q",
			c.Layout.CharWidth, c.Layout.RenderWidth)
	}
	opts.RenderWidth = rw.ToPX()
	return opts, nil
}

func (c *Config) ShapeOptions() (shape.Options, error) {
	s := c.Shape
	if s.Rows < 0 || s.ReferenceHeight < 0 {
		return shape.Options{}, fmt.Errorf("shape.rows 与 shape.reference_height 不能为负数")
	}
	// 像素值须小于 ink_max 才算墨迹，因此 ink_max 为 0 时没有任何墨迹
	if s.InkMax < 1 || s.InkMax > 255 {
		return shape.Options{}, fmt.Errorf("shape.ink_max 超出 1-255: %d", s.InkMax)
	}
	if s.AlphaMin < 0 || s.AlphaMin > 254 {
		return shape.Options{}, fmt.Errorf("shape.alpha_min 超出 0-254: %d", s.AlphaMin)
	}
	return shape.Options{
		Rows:            s.Rows,
		ReferenceHeight: s.ReferenceHeight,
		InkMax:          uint8(s.InkMax),
		AlphaMin:        uint8(s.AlphaMin),
		ExactThresholds: true,
	}, nil
}

func (c *Config) SegmentOptions() segment.Options {
	return segment.Options{SkipValidation: !c.Segment.Validate}
}

// RendererOptions 转换渲染配置。字号统一为 pt，边距统一为 mm；不带单位时分别按 pt、mm 理解。
func (c *Config) RendererOptions() (canvasrenderer.Options, error) {
	r := c.Render
	opts := canvasrenderer.Options{
		Font:       r.Font,
		Format:     strings.ToLower(r.Format),
		Resolution: r.Resolution,
	}
	switch opts.Format {
	case "", canvasrenderer.FormatPDF, canvasrenderer.FormatPNG:
	default:
		return opts, fmt.Errorf("render.format 不支持: %q", r.Format)
	}
	if r.FontSize != "" {
		size := layout.ParseRawLengthStr(r.FontSize)
		if size.Value <= 0 {
			return opts, fmt.Errorf("render.font_size 必须为正数: %q", r.FontSize)
		}
		if size.Unit == layout.UnitNone {
			size.Unit = layout.UnitPT
		}
		opts.FontSize = size.ToPT()
	}
	if r.LineHeight != "" {
		opts.LineHeight = layout.ParseLineHeight(r.LineHeight)
	}
	if r.Margin != "" {
		m := layout.ParseRawLengthStr(r.Margin)
		if m.Unit == layout.UnitNone {
			m.Unit = layout.UnitMM
		}
		opts.Margin = m.ToMM()
		if opts.Margin == 0 {
			// 显式写 0 表示不留边距
			opts.Margin = -1
		}
	}
	return opts, nil
}

// LiveInterval 返回实时预览的刷新间隔。
func (c *Config) LiveInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Live.Interval)
	if err != nil {
		return 0, fmt.Errorf("live.interval 非法: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("live.interval 必须为正数: %s", c.Live.Interval)
	}
	return d, nil
}
