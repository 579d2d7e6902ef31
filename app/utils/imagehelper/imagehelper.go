package imagehelper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// MakeThumbnail 按宽度等比缩放生成缩略图
func MakeThumbnail(srcPath, destPath string, width int) error {
	img, err := imaging.Open(srcPath)
	if err != nil {
		return fmt.Errorf("打开图片失败: %w", err)
	}

	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("创建缩略图目录失败: %w", err)
	}
	if err := imaging.Save(thumb, destPath); err != nil {
		return fmt.Errorf("保存缩略图失败: %w", err)
	}
	return nil
}

// PlaceholderCard 为缺失或失败的分镜生成一张占位卡片
func PlaceholderCard(destPath string, index int, label string) error {
	const (
		width  = 320
		height = 180
	)

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.16, 0.16, 0.18)
	dc.Clear()

	dc.SetRGB(0.85, 0.85, 0.85)
	dc.SetFontFace(basicfont.Face7x13)
	dc.DrawStringAnchored(fmt.Sprintf("分镜 #%d", index), width/2, height/2-10, 0.5, 0.5)

	if label != "" {
		dc.SetRGB(0.6, 0.4, 0.4)
		dc.DrawStringAnchored(truncateLabel(label, 40), width/2, height/2+12, 0.5, 0.5)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("创建占位图目录失败: %w", err)
	}
	return dc.SavePNG(destPath)
}

// truncateLabel 按字符数截断标签，中文等多字节字符不会被截成半个
func truncateLabel(label string, max int) string {
	runes := []rune(label)
	if len(runes) <= max {
		return label
	}
	return string(runes[:max]) + "..."
}
