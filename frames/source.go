// Package frames 提供剪影提取所需的帧来源：静态图片、单词、旋转立方体与 Lua 脚本。
package frames

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Source 每次调用返回一帧待提取剪影的图像。
type Source interface {
	Frame() (image.Image, error)
}

// Image 是始终返回同一张图片的静态来源。
type Image struct {
	img image.Image
}

var (
	_ Source = (*Image)(nil)
	_ Source = (*Cube)(nil)
	_ Source = (*Lua)(nil)
	_ Source = (*Word)(nil)
)

func NewImage(img image.Image) *Image { return &Image{img: img} }

// Load 读取并解码 PNG/JPEG/GIF 文件。
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开图片 %s 失败: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", path, err)
	}
	return &Image{img: img}, nil
}

func (s *Image) Frame() (image.Image, error) {
	if s.img == nil {
		return nil, fmt.Errorf("图片为空")
	}
	return s.img, nil
}
