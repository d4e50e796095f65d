package frames

import (
	"fmt"
	"image"
	"image/color"

	lua "github.com/yuin/gopher-lua"
)

// 默认的脚本采样尺寸。高度与剪影提取的参考高度一致，宽度只影响横向精度。
const (
	DefaultLuaWidth  = 200
	DefaultLuaHeight = 800
)

// Lua 由脚本中的 ink(u, v, t) 决定每个像素是否着墨。
// u、v 为像素中心归一化到 [0,1) 的坐标，t 为帧序号（从 0 开始）。
type Lua struct {
	state  *lua.LState
	fn     *lua.LFunction
	width  int
	height int
	t      int
}

// NewLua 执行脚本并取出全局函数 ink。width/height 非正时使用默认值。
func NewLua(src string, width, height int) (*Lua, error) {
	if width <= 0 {
		width = DefaultLuaWidth
	}
	if height <= 0 {
		height = DefaultLuaHeight
	}
	L := lua.NewState()
	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("lua: %w", err)
	}
	fn, ok := L.GetGlobal("ink").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("lua: 脚本缺少函数 ink(u, v, t)")
	}
	return &Lua{state: L, fn: fn, width: width, height: height}, nil
}

func (s *Lua) Frame() (image.Image, error) {
	if s.state == nil {
		return nil, fmt.Errorf("lua: 脚本已关闭")
	}
	img := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	black := color.NRGBA{A: 0xff}
	t := lua.LNumber(s.t)
	for y := 0; y < s.height; y++ {
		v := lua.LNumber((float64(y) + 0.5) / float64(s.height))
		for x := 0; x < s.width; x++ {
			u := lua.LNumber((float64(x) + 0.5) / float64(s.width))
			if err := s.state.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true}, u, v, t); err != nil {
				return nil, fmt.Errorf("lua: ink(%g, %g, %d): %w", float64(u), float64(v), s.t, err)
			}
			ret := s.state.Get(-1)
			s.state.Pop(1)
			if lua.LVAsBool(ret) {
				img.SetNRGBA(x, y, black)
			}
		}
	}
	s.t++
	return img, nil
}

func (s *Lua) Close() {
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}
