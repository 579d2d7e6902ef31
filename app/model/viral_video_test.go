package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViralVideoTagsRoundTrip(t *testing.T) {
	var video ViralVideo

	// 未设置时返回空
	assert.Nil(t, video.Tags())
	assert.False(t, video.HasTag("美食"))

	require.NoError(t, video.SetTags([]string{"美食", "探店", "vlog"}))
	assert.Equal(t, []string{"美食", "探店", "vlog"}, video.Tags())
	assert.True(t, video.HasTag("探店"))
	assert.False(t, video.HasTag("旅行"))

	// 脏数据不至于崩溃
	video.TagsJSON = "{broken"
	assert.Nil(t, video.Tags())
}

func TestViralVideoStoryboardDescriptions(t *testing.T) {
	var video ViralVideo

	assert.Nil(t, video.StoryboardDescriptions())

	descs := []string{"开场航拍城市全景", "主角推门进入餐厅"}
	require.NoError(t, video.SetStoryboardDescriptions(descs))
	assert.Equal(t, descs, video.StoryboardDescriptions())
}
