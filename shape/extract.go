package shape

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

const (
	DefaultRows            = 100
	DefaultReferenceHeight = 800
	DefaultInkMax          = 10
	DefaultAlphaMin        = 200
)

// Options 控制降采样与墨迹判定阈值。零值字段使用默认值；
// ExactThresholds 为 true 时 InkMax、AlphaMin 按原值使用，AlphaMin 为 0 即任何不透明度都算墨迹。
type Options struct {
	Rows            int   // 参考高度对应的采样行数
	ReferenceHeight int   // 参考高度（像素）
	InkMax          uint8 // R/G/B 均小于该值才算墨迹
	AlphaMin        uint8 // Alpha 大于该值才算墨迹
	ExactThresholds bool
}

func (o Options) withDefaults() Options {
	if o.Rows <= 0 {
		o.Rows = DefaultRows
	}
	if o.ReferenceHeight <= 0 {
		o.ReferenceHeight = DefaultReferenceHeight
	}
	if o.ExactThresholds {
		return o
	}
	if o.InkMax == 0 {
		o.InkMax = DefaultInkMax
	}
	if o.AlphaMin == 0 {
		o.AlphaMin = DefaultAlphaMin
	}
	return o
}

// Extract 将图像按 Rows/ReferenceHeight 的比例压缩高度（宽度保持不变），再逐行扫描墨迹区间。
func Extract(img image.Image, opts Options) Data {
	opts = opts.withDefaults()
	if img == nil {
		return Data{}
	}
	b := img.Bounds()
	width := b.Dx()
	height := b.Dy() * opts.Rows / opts.ReferenceHeight
	if width <= 0 || height <= 0 {
		return Data{Columns: max(width, 0)}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return Scan(dst, opts)
}

// Scan 直接扫描已经绘制好的画面，不做降采样。
func Scan(img image.Image, opts Options) Data {
	opts = opts.withDefaults()
	if img == nil {
		return Data{}
	}
	b := img.Bounds()
	width := b.Dx()
	data := Data{Lines: make([]Line, 0, b.Dy()), Columns: width}
	if width <= 0 {
		return data
	}
	ink := inkTester(img, opts)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		line := Line{}
		x := 0
		for x < width {
			for x < width && !ink(b.Min.X+x, y) {
				x++
			}
			if x >= width {
				break
			}
			start := x
			for x < width && ink(b.Min.X+x, y) {
				x++
			}
			line = append(line, Run{
				Start: float64(start) / float64(width),
				End:   float64(x) / float64(width),
			})
		}
		data.Lines = append(data.Lines, line)
	}
	return data
}

// IsInk 判断非预乘颜色是否为墨迹：接近黑色且接近不透明。
func IsInk(c color.NRGBA, inkMax, alphaMin uint8) bool {
	return c.R < inkMax && c.G < inkMax && c.B < inkMax && c.A > alphaMin
}

func inkTester(img image.Image, opts Options) func(x, y int) bool {
	// NRGBA 直接读像素，避免逐点接口转换
	if n, ok := img.(*image.NRGBA); ok {
		return func(x, y int) bool {
			i := n.PixOffset(x, y)
			p := n.Pix[i : i+4 : i+4]
			return IsInk(color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}, opts.InkMax, opts.AlphaMin)
		}
	}
	return func(x, y int) bool {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		return IsInk(c, opts.InkMax, opts.AlphaMin)
	}
}
