package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionSuffix(t *testing.T) {
	tests := []struct {
		version string
		want    int
		wantErr bool
	}{
		{"v1", 1, false},
		{"v12", 12, false},
		{"v0", 0, true},
		{"v-1", 0, true},
		{"3", 0, true},
		{"version3", 0, true},
		{"v", 0, true},
		{"", 0, true},
		{"vabc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := ParseVersionSuffix(tt.version)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1", FormatVersion(1))
	assert.Equal(t, "v42", FormatVersion(42))
}

func TestDetermineLatestVersion(t *testing.T) {
	t.Run("空集合返回nil", func(t *testing.T) {
		assert.Nil(t, DetermineLatestVersion(nil))
		assert.Nil(t, DetermineLatestVersion([]PromptVersion{}))
	})

	t.Run("取后缀最大的版本", func(t *testing.T) {
		versions := []PromptVersion{
			{Version: "v2", Suffix: 2},
			{Version: "v10", Suffix: 10},
			{Version: "v9", Suffix: 9},
		}
		latest := DetermineLatestVersion(versions)
		require.NotNil(t, latest)
		assert.Equal(t, "v10", latest.Version)
	})
}

func TestIsCurrentLatest(t *testing.T) {
	versions := []PromptVersion{
		{Version: "v1", Suffix: 1},
		{Version: "v2", Suffix: 2},
		{Version: "v3", Suffix: 3},
	}

	assert.True(t, IsCurrentLatest("v3", versions))
	assert.False(t, IsCurrentLatest("v2", versions))
	assert.False(t, IsCurrentLatest("", versions))
	assert.False(t, IsCurrentLatest("v3", nil))
}

func TestStoryboardSnapshotRoundTrip(t *testing.T) {
	v := PromptVersion{}
	boards := []StoryboardSnapshot{
		{Index: 0, TextToImage: "一只猫在屋顶", ImageToVideo: "猫跳下屋顶", CharacterRefs: []string{"A"}},
		{Index: 1, TextToImage: "雨夜街道", IsEdited: true},
	}

	require.NoError(t, v.SetStoryboards(boards))
	got := v.Storyboards()
	require.Len(t, got, 2)
	assert.Equal(t, boards, got)
	assert.Equal(t, 2, v.StoryboardCount())

	empty := PromptVersion{}
	assert.Nil(t, empty.Storyboards())
	assert.Equal(t, 0, empty.StoryboardCount())
}
