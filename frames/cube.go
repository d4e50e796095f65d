package frames

import (
	"image"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

const (
	cubeSize   = 800.0
	cubeScale  = 1.55
	cubeStroke = 55.0
	cubeStep   = 0.01
	// 相机沿 z 轴后退的距离
	cubeDistance = 6.0
)

var cubeOffset = [2]float64{-230, -224}

// 沿同一条折线依次经过的顶点，覆盖立方体的全部 12 条棱。
var cubePath = [][3]float64{
	{-1, 1, 1}, {1, 1, 1}, {1, -1, 1}, {-1, -1, 1}, {-1, 1, 1},
	{-1, 1, -1}, {1, 1, -1}, {1, -1, -1}, {-1, -1, -1}, {-1, 1, -1},
	{1, 1, -1}, {1, 1, 1}, {1, -1, 1}, {1, -1, -1}, {-1, -1, -1}, {-1, -1, 1},
}

// Cube 绘制一个线框立方体，每取一帧绕 x、y 轴各转动一步。
type Cube struct {
	XAngle float64
	YAngle float64
}

func NewCube() *Cube {
	return &Cube{XAngle: math.Pi * 0.2, YAngle: math.Pi * 0.25}
}

// Frame 在 800×800 的画布上以黑色圆头粗线绘制当前角度的立方体，随后推进角度。
func (c *Cube) Frame() (image.Image, error) {
	cv := canvas.New(cubeSize, cubeSize)
	ctx := canvas.NewContext(cv)
	ctx.SetCoordSystem(canvas.CartesianIV)
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(canvas.Black)
	ctx.SetStrokeWidth(cubeStroke * cubeScale)
	ctx.SetStrokeCapper(canvas.RoundCap)
	ctx.SetStrokeJoiner(canvas.RoundJoin)

	pts := c.Project()
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	for _, pt := range pts[1:] {
		p.LineTo(pt[0]-pts[0][0], pt[1]-pts[0][1])
	}
	ctx.DrawPath(pts[0][0], pts[0][1], p)

	img := rasterizer.Draw(cv, canvas.DPMM(1), canvas.DefaultColorSpace)

	c.XAngle += cubeStep
	c.YAngle -= 2 * cubeStep
	return img, nil
}

// Project 返回当前角度下各顶点在画布上的坐标（左上角为原点）。
func (c *Cube) Project() [][2]float64 {
	sx, cx := math.Sincos(c.XAngle)
	sy, cy := math.Sincos(c.YAngle)
	out := make([][2]float64, len(cubePath))
	for i, v := range cubePath {
		// 先绕 y 轴，再绕 x 轴
		x := cy*v[0] + sy*v[2]
		z := -sy*v[0] + cy*v[2]
		y := cx*v[1] - sx*z
		z = sx*v[1] + cx*z

		z -= cubeDistance
		w := -z
		nx, ny := x/w, y/w

		px := cubeSize*nx + 0.5*cubeSize
		py := cubeSize - (cubeSize*ny + 0.5*cubeSize)
		out[i] = [2]float64{
			cubeScale*px + cubeOffset[0],
			cubeScale*py + cubeOffset[1],
		}
	}
	return out
}
