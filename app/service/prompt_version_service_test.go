package service

import (
	"context"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/engine"
	"media-forge/app/logger"
	"media-forge/app/model"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakePromptGenerator 返回可辨识内容的引擎替身
type fakePromptGenerator struct {
	calls int
	err   error
}

func (g *fakePromptGenerator) GeneratePrompts(_ context.Context, req *engine.GeneratePromptsRequest) (*engine.PromptResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}

	return &engine.PromptResult{
		Storyboards: []model.StoryboardSnapshot{
			{Index: 0, TextToImage: fmt.Sprintf("第%d次生成: %s", g.calls, req.Instruction)},
			{Index: 1, TextToImage: "雨夜街道"},
		},
	}, nil
}

func newVersionTestService(t *testing.T) (*PromptVersionService, *fakePromptGenerator, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.VideoProject{}, &model.PromptVersion{}))

	gen := &fakePromptGenerator{}
	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})
	return NewPromptVersionService(db, gen, log), gen, db
}

func seedProject(t *testing.T, db *gorm.DB) *model.VideoProject {
	t.Helper()

	project := &model.VideoProject{
		ID:         "p1",
		Name:       "测试项目",
		YoutubeURL: "https://youtube.com/watch?v=abc",
		Status:     model.ProjectStatusParsed,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func currentVersion(t *testing.T, db *gorm.DB, projectID string) string {
	t.Helper()

	var project model.VideoProject
	require.NoError(t, db.First(&project, "id = ?", projectID).Error)
	return project.CurrentPromptVersion
}

func listVersionNames(t *testing.T, db *gorm.DB, projectID string) []string {
	t.Helper()

	var versions []model.PromptVersion
	require.NoError(t, db.Where("project_id = ?", projectID).
		Order("suffix ASC").Find(&versions).Error)
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Version)
	}
	return names
}

func TestGeneratePromptsCreatesRootVersion(t *testing.T) {
	svc, _, db := newVersionTestService(t)
	seedProject(t, db)

	v, err := svc.GeneratePrompts(context.Background(), "p1", "重新想象成赛博朋克风格")
	require.NoError(t, err)

	assert.Equal(t, "v1", v.Version)
	assert.Equal(t, 1, v.Suffix)
	assert.Empty(t, v.ParentVersion)
	assert.Len(t, v.Storyboards(), 2)
	assert.Equal(t, "v1", currentVersion(t, db, "p1"))

	// 已有版本时必须走继续生成
	_, err = svc.GeneratePrompts(context.Background(), "p1", "再来一次")
	assert.Error(t, err)
}

func TestContinueFromBuildsChain(t *testing.T) {
	svc, _, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)

	v2, err := svc.ContinueFrom(context.Background(), "p1", "加强光影", "")
	require.NoError(t, err)
	assert.Equal(t, "v2", v2.Version)
	assert.Equal(t, "v1", v2.ParentVersion)

	v3, err := svc.ContinueFrom(context.Background(), "p1", "改成夜景", "")
	require.NoError(t, err)
	assert.Equal(t, "v3", v3.Version)
	assert.Equal(t, "v2", v3.ParentVersion)
	assert.Equal(t, "v3", currentVersion(t, db, "p1"))
}

func TestContinueFromOlderVersionBranches(t *testing.T) {
	svc, _, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)
	_, err = svc.ContinueFrom(context.Background(), "p1", "v2的指令", "")
	require.NoError(t, err)

	// 切回 v1 后继续生成：新版本号取最大后缀加一，父版本是 v1
	require.NoError(t, svc.SwitchVersion("p1", "v1"))
	v3, err := svc.ContinueFrom(context.Background(), "p1", "另一条分支", "")
	require.NoError(t, err)

	assert.Equal(t, "v3", v3.Version)
	assert.Equal(t, "v1", v3.ParentVersion)
	assert.Equal(t, []string{"v1", "v2", "v3"}, listVersionNames(t, db, "p1"))
}

func TestRegenerateOverwritesAndPrunes(t *testing.T) {
	svc, _, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)
	_, err = svc.ContinueFrom(context.Background(), "p1", "v2", "")
	require.NoError(t, err)
	_, err = svc.ContinueFrom(context.Background(), "p1", "v3", "")
	require.NoError(t, err)

	from, deleted, err := svc.RegenerateFromVersion(context.Background(), "p1", "v2", "重写v2", "")
	require.NoError(t, err)

	assert.Equal(t, "v2", from.Version)
	assert.Equal(t, "重写v2", from.Instruction)
	assert.Equal(t, []string{"v3"}, deleted)
	assert.Equal(t, []string{"v1", "v2"}, listVersionNames(t, db, "p1"))

	// 当前版本 v3 被剪掉，回落到 v2
	assert.Equal(t, "v2", currentVersion(t, db, "p1"))
}

func TestRegenerateReportsEveryPrunedVersion(t *testing.T) {
	svc, _, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)
	for _, instruction := range []string{"v2", "v3", "v4"} {
		_, err = svc.ContinueFrom(context.Background(), "p1", instruction, "")
		require.NoError(t, err)
	}

	// 删除清单按后缀升序、与库里被删掉的版本一一对应
	_, deleted, err := svc.RegenerateFromVersion(context.Background(), "p1", "v1", "重写", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"v2", "v3", "v4"}, deleted)
	assert.Equal(t, []string{"v1"}, listVersionNames(t, db, "p1"))
}

func TestRegeneratePrunesSiblingBranches(t *testing.T) {
	svc, _, db := newVersionTestService(t)
	seedProject(t, db)

	// 构造分支树：v1 -> v2，v1 -> v3（v3 是切回 v1 后的分支）
	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)
	_, err = svc.ContinueFrom(context.Background(), "p1", "v2", "")
	require.NoError(t, err)
	require.NoError(t, svc.SwitchVersion("p1", "v1"))
	_, err = svc.ContinueFrom(context.Background(), "p1", "v3", "")
	require.NoError(t, err)

	// 从 v2 重生成：按后缀剪枝，v3 虽然不在 v2 的子树上也会被删除
	_, deleted, err := svc.RegenerateFromVersion(context.Background(), "p1", "v2", "重写", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"v3"}, deleted)
	assert.Equal(t, []string{"v1", "v2"}, listVersionNames(t, db, "p1"))
	assert.Equal(t, "v2", currentVersion(t, db, "p1"))
}

func TestRegenerateKeepsCurrentWhenNotPruned(t *testing.T) {
	svc, _, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)
	_, err = svc.ContinueFrom(context.Background(), "p1", "v2", "")
	require.NoError(t, err)
	require.NoError(t, svc.SwitchVersion("p1", "v1"))

	// 当前版本 v1 不受从 v2 重生成的影响
	_, deleted, err := svc.RegenerateFromVersion(context.Background(), "p1", "v2", "重写", "")
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.Equal(t, "v1", currentVersion(t, db, "p1"))
}

func TestSwitchVersionMovesPointerOnly(t *testing.T) {
	svc, gen, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)
	_, err = svc.ContinueFrom(context.Background(), "p1", "v2", "")
	require.NoError(t, err)

	callsBefore := gen.calls
	require.NoError(t, svc.SwitchVersion("p1", "v1"))

	// 切换不调用引擎，也不增删版本
	assert.Equal(t, callsBefore, gen.calls)
	assert.Equal(t, "v1", currentVersion(t, db, "p1"))
	assert.Equal(t, []string{"v1", "v2"}, listVersionNames(t, db, "p1"))

	// 项目分镜快照同步为目标版本
	var project model.VideoProject
	require.NoError(t, db.First(&project, "id = ?", "p1").Error)
	var v1 model.PromptVersion
	require.NoError(t, db.First(&v1, "project_id = ? AND version = ?", "p1", "v1").Error)
	assert.Equal(t, v1.SnapshotJSON, project.StoryboardsJSON)

	assert.ErrorIs(t, svc.SwitchVersion("p1", "v9"), ErrVersionNotFound)
}

func TestBaseVersionConflict(t *testing.T) {
	svc, gen, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)
	_, err = svc.ContinueFrom(context.Background(), "p1", "v2", "")
	require.NoError(t, err)

	// 调用方还以为当前版本是 v1，其间已变为 v2
	callsBefore := gen.calls
	_, err = svc.ContinueFrom(context.Background(), "p1", "基于v1", "v1")
	assert.ErrorIs(t, err, ErrConflict)

	_, _, err = svc.RegenerateFromVersion(context.Background(), "p1", "v1", "重写", "v1")
	assert.ErrorIs(t, err, ErrConflict)

	// 冲突时不调用引擎、不做任何改动
	assert.Equal(t, callsBefore, gen.calls)
	assert.Equal(t, []string{"v1", "v2"}, listVersionNames(t, db, "p1"))
	assert.Equal(t, "v2", currentVersion(t, db, "p1"))
}

func TestVersionServiceNotFoundErrors(t *testing.T) {
	svc, _, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "missing", "指令")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	_, err = svc.ContinueFrom(context.Background(), "p1", "指令", "")
	assert.ErrorIs(t, err, ErrNoVersions)

	_, _, err = svc.RegenerateFromVersion(context.Background(), "p1", "v5", "指令", "")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestEngineFailureLeavesNoPartialState(t *testing.T) {
	svc, gen, db := newVersionTestService(t)
	seedProject(t, db)

	_, err := svc.GeneratePrompts(context.Background(), "p1", "初版")
	require.NoError(t, err)

	gen.err = fmt.Errorf("引擎超时")
	_, err = svc.ContinueFrom(context.Background(), "p1", "v2", "")
	assert.Error(t, err)

	// 失败时没有半成品版本落库
	assert.Equal(t, []string{"v1"}, listVersionNames(t, db, "p1"))
	assert.Equal(t, "v1", currentVersion(t, db, "p1"))
}
