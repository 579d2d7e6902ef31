package imagehelper

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateLabel(t *testing.T) {
	tests := []struct {
		name  string
		label string
		max   int
		want  string
	}{
		{"短标签原样返回", "超时", 40, "超时"},
		{"ASCII截断", strings.Repeat("a", 50), 40, strings.Repeat("a", 40) + "..."},
		{"中文按字符截断", strings.Repeat("错", 50), 40, strings.Repeat("错", 40) + "..."},
		{"刚好等于上限", strings.Repeat("b", 40), 40, strings.Repeat("b", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateLabel(tt.label, tt.max)
			assert.Equal(t, tt.want, got)
			// 截断结果必须是合法的 UTF-8
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestPlaceholderCardWithLongChineseLabel(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "thumbs", "sb_3_failed.png")

	err := PlaceholderCard(dest, 3, strings.Repeat("生成引擎配额已耗尽，请稍后重试。", 10))
	require.NoError(t, err)
	assert.FileExists(t, dest)
}
