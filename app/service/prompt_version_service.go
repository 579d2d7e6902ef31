package service

import (
	"context"
	"errors"
	"fmt"
	"media-forge/app/engine"
	"media-forge/app/logger"
	"media-forge/app/model"
	"time"

	"gorm.io/gorm"
)

// PromptGenerator 提示词版本服务依赖的引擎接口
type PromptGenerator interface {
	GeneratePrompts(ctx context.Context, req *engine.GeneratePromptsRequest) (*engine.PromptResult, error)
}

// PromptVersionService 提示词版本服务
//
// 维护项目的提示词版本分支树：版本号后缀严格递增，
// "从版本 N 重新生成" 按后缀（而非子树）删除 N 之后的所有版本
type PromptVersionService struct {
	db  *gorm.DB
	gen PromptGenerator
	log *logger.Logger
}

// NewPromptVersionService 创建提示词版本服务
func NewPromptVersionService(db *gorm.DB, gen PromptGenerator, log *logger.Logger) *PromptVersionService {
	return &PromptVersionService{
		db:  db,
		gen: gen,
		log: log,
	}
}

// ListVersions 按后缀升序返回项目的全部版本
func (s *PromptVersionService) ListVersions(projectID string) ([]model.PromptVersion, error) {
	var versions []model.PromptVersion
	if err := s.db.Where("project_id = ?", projectID).
		Order("suffix ASC").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("查询提示词版本失败: %w", err)
	}
	return versions, nil
}

// GeneratePrompts 首次生成，创建根版本 v1
func (s *PromptVersionService) GeneratePrompts(ctx context.Context, projectID, instruction string) (*model.PromptVersion, error) {
	project, err := s.loadProject(projectID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&model.PromptVersion{}).
		Where("project_id = ?", projectID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("查询版本数量失败: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("项目已存在提示词版本，请使用继续生成")
	}

	result, err := s.gen.GeneratePrompts(ctx, &engine.GeneratePromptsRequest{
		ProjectID:   projectID,
		Instruction: instruction,
		Storyboards: project.Storyboards(),
	})
	if err != nil {
		return nil, err
	}

	version := &model.PromptVersion{
		ProjectID:   projectID,
		Version:     model.FormatVersion(1),
		Suffix:      1,
		Instruction: instruction,
	}
	if err := version.SetStoryboards(result.Storyboards); err != nil {
		return nil, fmt.Errorf("序列化分镜快照失败: %w", err)
	}

	if err := s.commitNewVersion(project, version); err != nil {
		return nil, err
	}

	s.log.Infof("项目[%s]生成根提示词版本 %s，共 %d 个分镜", projectID, version.Version, len(result.Storyboards))
	return version, nil
}

// ContinueFrom 基于当前版本继续生成新版本
// 新版本的父版本是项目当前版本，后缀取全部版本的最大后缀加一，成功后成为当前版本
func (s *PromptVersionService) ContinueFrom(ctx context.Context, projectID, instruction, baseVersion string) (*model.PromptVersion, error) {
	project, err := s.loadProject(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflict(project, baseVersion); err != nil {
		return nil, err
	}
	if project.CurrentPromptVersion == "" {
		return nil, ErrNoVersions
	}

	current, err := s.loadVersion(projectID, project.CurrentPromptVersion)
	if err != nil {
		return nil, err
	}

	result, err := s.gen.GeneratePrompts(ctx, &engine.GeneratePromptsRequest{
		ProjectID:   projectID,
		Instruction: instruction,
		Storyboards: current.Storyboards(),
	})
	if err != nil {
		return nil, err
	}

	var latestSuffix int
	if err := s.db.Model(&model.PromptVersion{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(MAX(suffix), 0)").Scan(&latestSuffix).Error; err != nil {
		return nil, fmt.Errorf("查询最大版本后缀失败: %w", err)
	}

	version := &model.PromptVersion{
		ProjectID:     projectID,
		Version:       model.FormatVersion(latestSuffix + 1),
		Suffix:        latestSuffix + 1,
		Instruction:   instruction,
		ParentVersion: current.Version,
	}
	if err := version.SetStoryboards(result.Storyboards); err != nil {
		return nil, fmt.Errorf("序列化分镜快照失败: %w", err)
	}

	if err := s.commitNewVersion(project, version); err != nil {
		return nil, err
	}

	s.log.Infof("项目[%s]从 %s 继续生成版本 %s", projectID, current.Version, version.Version)
	return version, nil
}

// RegenerateFromVersion 从指定版本重新生成
// 覆盖该版本的内容，并删除后缀严格大于它的所有版本（按后缀剪枝，不看父指针），
// 返回被删除的版本号；若删除波及当前版本，则当前版本回落到被重生成的版本
func (s *PromptVersionService) RegenerateFromVersion(ctx context.Context, projectID, fromVersion, instruction, baseVersion string) (*model.PromptVersion, []string, error) {
	project, err := s.loadProject(projectID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkConflict(project, baseVersion); err != nil {
		return nil, nil, err
	}

	from, err := s.loadVersion(projectID, fromVersion)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.gen.GeneratePrompts(ctx, &engine.GeneratePromptsRequest{
		ProjectID:   projectID,
		Instruction: instruction,
		Storyboards: from.Storyboards(),
	})
	if err != nil {
		return nil, nil, err
	}

	from.Instruction = instruction
	if err := from.SetStoryboards(result.Storyboards); err != nil {
		return nil, nil, fmt.Errorf("序列化分镜快照失败: %w", err)
	}

	var deleted []string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 在同一事务里查出并删除，保证返回的删除清单与实际删除完全一致
		var pruned []model.PromptVersion
		if err := tx.Where("project_id = ? AND suffix > ?", projectID, from.Suffix).
			Order("suffix ASC").Find(&pruned).Error; err != nil {
			return fmt.Errorf("查询待删除版本失败: %w", err)
		}
		deleted = make([]string, 0, len(pruned))
		for _, v := range pruned {
			deleted = append(deleted, v.Version)
		}

		if err := tx.Where("project_id = ? AND suffix > ?", projectID, from.Suffix).
			Delete(&model.PromptVersion{}).Error; err != nil {
			return fmt.Errorf("删除后续版本失败: %w", err)
		}

		if err := tx.Save(from).Error; err != nil {
			return fmt.Errorf("覆盖版本内容失败: %w", err)
		}

		// 当前版本被剪掉时回落到重生成的版本
		currentSuffix, parseErr := model.ParseVersionSuffix(project.CurrentPromptVersion)
		if parseErr != nil || currentSuffix > from.Suffix {
			project.CurrentPromptVersion = from.Version
		}
		if project.CurrentPromptVersion == from.Version {
			project.StoryboardsJSON = from.SnapshotJSON
		}
		project.Status = model.ProjectStatusPromptsReady
		project.UpdatedAt = time.Now()

		return tx.Save(project).Error
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Infof("项目[%s]从版本 %s 重新生成，删除了 %d 个后续版本", projectID, fromVersion, len(deleted))
	return from, deleted, nil
}

// SwitchVersion 把项目的当前版本指针切到已存在的版本，不改动任何版本内容
func (s *PromptVersionService) SwitchVersion(projectID, version string) error {
	project, err := s.loadProject(projectID)
	if err != nil {
		return err
	}

	target, err := s.loadVersion(projectID, version)
	if err != nil {
		return err
	}

	project.CurrentPromptVersion = target.Version
	project.StoryboardsJSON = target.SnapshotJSON
	if err := s.db.Save(project).Error; err != nil {
		return fmt.Errorf("切换版本失败: %w", err)
	}

	s.log.Infof("项目[%s]切换到版本 %s", projectID, version)
	return nil
}

// commitNewVersion 落库新版本并把它设为项目当前版本
func (s *PromptVersionService) commitNewVersion(project *model.VideoProject, version *model.PromptVersion) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(version).Error; err != nil {
			return fmt.Errorf("保存提示词版本失败: %w", err)
		}

		project.CurrentPromptVersion = version.Version
		project.StoryboardsJSON = version.SnapshotJSON
		project.Status = model.ProjectStatusPromptsReady
		return tx.Save(project).Error
	})
}

// checkConflict 调用方携带它所见的当前版本时做并发修改检查
func (s *PromptVersionService) checkConflict(project *model.VideoProject, baseVersion string) error {
	if baseVersion != "" && baseVersion != project.CurrentPromptVersion {
		return fmt.Errorf("%w: 当前版本已变为 %s", ErrConflict, project.CurrentPromptVersion)
	}
	return nil
}

func (s *PromptVersionService) loadProject(projectID string) (*model.VideoProject, error) {
	var project model.VideoProject
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("查询项目失败: %w", err)
	}
	return &project, nil
}

func (s *PromptVersionService) loadVersion(projectID, version string) (*model.PromptVersion, error) {
	var v model.PromptVersion
	if err := s.db.First(&v, "project_id = ? AND version = ?", projectID, version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("查询版本失败: %w", err)
	}
	return &v, nil
}
