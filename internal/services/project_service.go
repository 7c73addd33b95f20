// internal/services/project_service.go
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/storage"
)

// 工程目录内的固定文件名
const (
	projectFile  = "project.json"
	sourceFile   = "source.txt"
	analysisFile = "analysis.json"
	metadataFile = "metadata.json"
)

// ProjectData 聚合工程信息及其分析产物
type ProjectData struct {
	Project  models.Project        `json:"project"`
	Analysis *models.NovelAnalysis `json:"analysis,omitempty"`
}

type CachedProjectData struct {
	Data      *ProjectData
	Timestamp time.Time
}

// CachedProjectList 缓存的工程列表
type CachedProjectList struct {
	Projects  []models.Project
	Timestamp time.Time
}

// ProjectService 管理分析工程的落盘与读取。
// 每个工程一个目录：原文、分析结果和导出元数据各占一个文件。
type ProjectService struct {
	BasePath string
	Storage  *storage.FileStorage
	Locks    *LockManager

	// 导出元数据走带修改时间校验的 JSON 缓存，
	// 下游生成器可能在缓存期内改写该文件
	metaCache *storage.JSONFileCache

	// 读缓存
	cacheMutex   sync.RWMutex
	projectCache map[string]*CachedProjectData
	listCache    *CachedProjectList
	cacheExpiry  time.Duration
}

// NewProjectService 创建工程服务
func NewProjectService(basePath string) *ProjectService {
	if basePath == "" {
		basePath = "data/projects"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		fmt.Printf("警告: 创建工程目录失败: %v\n", err)
	}

	fileStorage, err := storage.NewFileStorage(basePath)
	if err != nil {
		fmt.Printf("警告: 创建文件存储失败: %v\n", err)
		fileStorage = nil
	}

	return &ProjectService{
		BasePath:     basePath,
		Storage:      fileStorage,
		Locks:        NewLockManager(),
		metaCache:    storage.NewJSONFileCache(256, 5*time.Minute),
		projectCache: make(map[string]*CachedProjectData),
		cacheExpiry:  5 * time.Minute,
	}
}

// metadataPath 返回工程导出元数据文件的完整路径
func (s *ProjectService) metadataPath(projectID string) string {
	return filepath.Join(s.BasePath, projectID, metadataFile)
}

// CreateProject 新建工程并保存原文
func (s *ProjectService) CreateProject(name, sourceName, text string) (*models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("工程名称不能为空", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("作品文本不能为空", nil)
	}

	projectID := s.generateUniqueProjectID()

	project := &models.Project{
		ID:           projectID,
		Name:         name,
		SourceFile:   sourceName,
		TextLength:   len([]rune(text)),
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}

	err := s.Locks.ExecuteWithProjectLock(projectID, func() error {
		if err := s.Storage.SaveTextFile(projectID, sourceFile, []byte(text)); err != nil {
			return apperrors.NewStorageError("保存作品原文失败", err)
		}
		if err := s.Storage.SaveJSONFile(projectID, projectFile, project); err != nil {
			return apperrors.NewStorageError("保存工程信息失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateListCache()

	return project, nil
}

// GetProject 读取工程信息，已分析的工程一并带出分析结果
func (s *ProjectService) GetProject(projectID string) (*ProjectData, error) {
	// 检查缓存
	s.cacheMutex.RLock()
	if cached, ok := s.projectCache[projectID]; ok {
		if time.Since(cached.Timestamp) < s.cacheExpiry {
			s.cacheMutex.RUnlock()
			return cached.Data, nil
		}
	}
	s.cacheMutex.RUnlock()

	data := &ProjectData{}
	err := s.Locks.ExecuteWithProjectReadLock(projectID, func() error {
		if !s.Storage.DirExists(projectID) {
			return apperrors.NewNotFoundError(fmt.Sprintf("工程不存在: %s", projectID), nil)
		}

		if err := s.Storage.LoadJSONFile(projectID, projectFile, &data.Project); err != nil {
			return apperrors.NewStorageError("读取工程信息失败", err)
		}

		if s.Storage.FileExists(projectID, analysisFile) {
			analysis := &models.NovelAnalysis{}
			if err := s.Storage.LoadJSONFile(projectID, analysisFile, analysis); err != nil {
				return apperrors.NewStorageError("读取分析结果失败", err)
			}
			data.Analysis = analysis
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 更新缓存
	s.cacheMutex.Lock()
	s.projectCache[projectID] = &CachedProjectData{
		Data:      data,
		Timestamp: time.Now(),
	}
	s.cacheMutex.Unlock()

	return data, nil
}

// GetSourceText 读取工程的作品原文
func (s *ProjectService) GetSourceText(projectID string) (string, error) {
	var text string
	err := s.Locks.ExecuteWithProjectReadLock(projectID, func() error {
		if !s.Storage.FileExists(projectID, sourceFile) {
			return apperrors.NewNotFoundError(fmt.Sprintf("工程原文不存在: %s", projectID), nil)
		}

		content, err := s.Storage.LoadTextFile(projectID, sourceFile)
		if err != nil {
			return apperrors.NewStorageError("读取作品原文失败", err)
		}
		text = string(content)
		return nil
	})
	return text, err
}

// SaveAnalysis 保存分析结果并把工程标记为已分析
func (s *ProjectService) SaveAnalysis(projectID string, analysis *models.NovelAnalysis) error {
	err := s.Locks.ExecuteWithProjectLock(projectID, func() error {
		var project models.Project
		if err := s.Storage.LoadJSONFile(projectID, projectFile, &project); err != nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("工程不存在: %s", projectID), err)
		}

		if err := s.Storage.SaveJSONFile(projectID, analysisFile, analysis); err != nil {
			return apperrors.NewStorageError("保存分析结果失败", err)
		}

		// 重新分析后旧的分镜元数据已失效（场景编号不再对应），一并删除
		if s.Storage.FileExists(projectID, metadataFile) {
			if err := s.Storage.DeleteFile(projectID, metadataFile); err != nil {
				return apperrors.NewStorageError("清除过期元数据失败", err)
			}
			s.metaCache.Forget(s.metadataPath(projectID))
		}

		project.Analyzed = true
		project.LastAccessed = time.Now()
		if err := s.Storage.SaveJSONFile(projectID, projectFile, &project); err != nil {
			return apperrors.NewStorageError("更新工程信息失败", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateProjectCache(projectID)
	return nil
}

// SaveMetadata 保存下游流水线的导出元数据
func (s *ProjectService) SaveMetadata(projectID string, metadata *models.ProjectMetadata) error {
	return s.Locks.ExecuteWithProjectLock(projectID, func() error {
		if !s.Storage.DirExists(projectID) {
			return apperrors.NewNotFoundError(fmt.Sprintf("工程不存在: %s", projectID), nil)
		}
		if err := s.metaCache.Write(s.metadataPath(projectID), metadata); err != nil {
			return apperrors.NewStorageError("保存导出元数据失败", err)
		}
		return nil
	})
}

// GetMetadata 读取导出元数据
func (s *ProjectService) GetMetadata(projectID string) (*models.ProjectMetadata, error) {
	metadata := &models.ProjectMetadata{}
	err := s.Locks.ExecuteWithProjectReadLock(projectID, func() error {
		if !s.Storage.FileExists(projectID, metadataFile) {
			return apperrors.NewNotFoundError(fmt.Sprintf("导出元数据不存在: %s", projectID), nil)
		}
		if err := s.metaCache.Read(s.metadataPath(projectID), metadata); err != nil {
			return apperrors.NewStorageError("读取导出元数据失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metadata, nil
}

// ListProjects 按创建时间倒序返回所有工程
func (s *ProjectService) ListProjects() ([]models.Project, error) {
	// 检查列表缓存
	s.cacheMutex.RLock()
	if s.listCache != nil && time.Since(s.listCache.Timestamp) < s.cacheExpiry {
		projects := s.listCache.Projects
		s.cacheMutex.RUnlock()
		return projects, nil
	}
	s.cacheMutex.RUnlock()

	dirs, err := s.Storage.ListDirs(".")
	if err != nil {
		return nil, apperrors.NewStorageError("读取工程列表失败", err)
	}

	projects := []models.Project{}
	for _, dir := range dirs {
		var project models.Project
		if err := s.Storage.LoadJSONFile(dir, projectFile, &project); err != nil {
			// 跳过损坏或不完整的工程目录
			continue
		}
		projects = append(projects, project)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})

	// 更新列表缓存
	s.cacheMutex.Lock()
	s.listCache = &CachedProjectList{
		Projects:  projects,
		Timestamp: time.Now(),
	}
	s.cacheMutex.Unlock()

	return projects, nil
}

// DeleteProject 删除工程及其全部文件
func (s *ProjectService) DeleteProject(projectID string) error {
	err := s.Locks.ExecuteWithProjectLock(projectID, func() error {
		if !s.Storage.DirExists(projectID) {
			return apperrors.NewNotFoundError(fmt.Sprintf("工程不存在: %s", projectID), nil)
		}
		if err := s.Storage.DeleteDir(projectID); err != nil {
			return apperrors.NewStorageError("删除工程失败", err)
		}
		s.metaCache.Forget(s.metadataPath(projectID))
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateProjectCache(projectID)
	return nil
}

// 清除单个工程缓存（连带列表缓存）
func (s *ProjectService) invalidateProjectCache(projectID string) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	delete(s.projectCache, projectID)
	s.listCache = nil
}

// 清除列表缓存
func (s *ProjectService) invalidateListCache() {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	s.listCache = nil
}

// generateUniqueProjectID 生成不与现有目录冲突的工程ID
func (s *ProjectService) generateUniqueProjectID() string {
	for {
		id := fmt.Sprintf("project_%d", time.Now().UnixNano())
		projectPath := filepath.Join(s.BasePath, id)

		if _, err := os.Stat(projectPath); os.IsNotExist(err) {
			return id
		}

		time.Sleep(time.Nanosecond)
	}
}
