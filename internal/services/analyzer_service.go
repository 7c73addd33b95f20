// internal/services/analyzer_service.go
package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/textproc"
	"github.com/Corphon/SceneWeaverMCP/internal/tokenizer"
)

// AnalyzerService 对小说文本做章节切分与逐场景的结构化分析
type AnalyzerService struct {
	processor *textproc.Processor
	chapters  *textproc.ChapterParser

	semaphore     chan struct{}
	analysisCache *AnalysisCache
}

// 分析结果缓存
type AnalysisCache struct {
	cache      map[string]*CachedAnalysis
	mutex      sync.RWMutex
	expiration time.Duration
}

type CachedAnalysis struct {
	Result    *models.NovelAnalysis
	Timestamp time.Time
}

// NewAnalyzerService 创建分析服务
func NewAnalyzerService(lex *lexicon.Lexicon, tok tokenizer.Tokenizer) *AnalyzerService {
	return &AnalyzerService{
		processor: textproc.NewProcessor(lex, tok),
		chapters:  textproc.NewChapterParser(),
		semaphore: make(chan struct{}, 3), // 限制并发数量为3
		analysisCache: &AnalysisCache{
			cache:      make(map[string]*CachedAnalysis),
			expiration: 30 * time.Minute,
		},
	}
}

// Processor 返回底层文本处理器，角色注册等服务复用同一词表与分词器
func (s *AnalyzerService) Processor() *textproc.Processor {
	return s.processor
}

// ChapterParser 返回章节解析器
func (s *AnalyzerService) ChapterParser() *textproc.ChapterParser {
	return s.chapters
}

// AnalyzeNovel 分析整部作品：章节切分加逐章场景分析
func (s *AnalyzerService) AnalyzeNovel(text string) (*models.NovelAnalysis, error) {
	// 获取并发许可
	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	// 检查缓存
	cacheKey := s.generateCacheKey(text)
	if cached := s.checkAnalysisCache(cacheKey); cached != nil {
		return cached, nil
	}

	analysis, err := s.analyzeNovel(context.Background(), text, nil)
	if err != nil {
		return nil, err
	}

	// 添加到缓存
	s.addToAnalysisCache(cacheKey, analysis)

	return analysis, nil
}

// AnalyzeNovelWithProgress 带进度反馈和取消控制的全文分析
func (s *AnalyzerService) AnalyzeNovelWithProgress(ctx context.Context, text string, tracker *ProgressTracker) (*models.NovelAnalysis, error) {
	// 获取并发许可
	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	// 检查context是否已经取消
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cacheKey := s.generateCacheKey(text)
	if cached := s.checkAnalysisCache(cacheKey); cached != nil {
		if tracker != nil {
			tracker.Complete("命中缓存，分析完成")
		}
		return cached, nil
	}

	analysis, err := s.analyzeNovel(ctx, text, tracker)
	if err != nil {
		return nil, err
	}

	s.addToAnalysisCache(cacheKey, analysis)

	if tracker != nil {
		tracker.Complete("分析成功完成")
	}

	return analysis, nil
}

// AnalyzeSceneText 分析单段场景文本
func (s *AnalyzerService) AnalyzeSceneText(text string) (*models.SceneRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("场景文本为空")
	}

	records, err := s.processor.ProcessNovel(text)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("场景文本为空")
	}
	if len(records) == 1 {
		return &records[0], nil
	}

	// 文本被切成了多个场景时合并回单条记录
	merged, err := s.processor.AnalyzeScene(strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// analyzeNovel 执行实际分析。tracker 为 nil 时静默运行。
func (s *AnalyzerService) analyzeNovel(ctx context.Context, text string, tracker *ProgressTracker) (*models.NovelAnalysis, error) {
	analysis := &models.NovelAnalysis{
		Chapters: []models.ChapterRecord{},
		Scenes:   []models.SceneRecord{},
	}

	if strings.TrimSpace(text) == "" {
		return analysis, nil
	}
	analysis.TextLength = len([]rune(text))

	// 步骤1: 章节切分 (10%)
	if tracker != nil {
		tracker.UpdateProgress(10, "切分章节...")
	}
	chapters := s.chapters.Parse(text)

	if len(chapters) == 0 {
		// 没有章节标题的稿件按整部作品分析
		records, err := s.processor.ProcessNovel(text)
		if err != nil {
			return nil, fmt.Errorf("场景分析失败: %w", err)
		}
		for j := range records {
			records[j].SceneIndex = j + 1
		}
		analysis.Scenes = records
		if tracker != nil {
			tracker.UpdateProgress(90, "场景分析完成...")
		}
	} else {
		analysis.Chapters = chapters

		// 步骤2: 逐章场景分析 (10% - 90%)
		for i, chapter := range chapters {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			records, err := s.processor.ProcessNovel(chapter.Content)
			if err != nil {
				return nil, fmt.Errorf("分析第 %d 章失败: %w", i+1, err)
			}
			for j := range records {
				records[j].ChapterIndex = i + 1
				records[j].SceneIndex = j + 1
			}
			analysis.Scenes = append(analysis.Scenes, records...)

			if tracker != nil {
				progress := 10 + (i+1)*80/len(chapters)
				tracker.UpdateProgress(progress, fmt.Sprintf("已分析 %d/%d 章...", i+1, len(chapters)))
			}
		}
	}

	// 步骤3: 汇总统计 (95%)
	if tracker != nil {
		tracker.UpdateProgress(95, "汇总分析结果...")
	}
	analysis.ChapterCount = len(analysis.Chapters)
	analysis.SceneCount = len(analysis.Scenes)
	for i := range analysis.Scenes {
		analysis.DialogueCount += len(analysis.Scenes[i].Dialogues)
	}

	return analysis, nil
}

// 生成缓存键
func (s *AnalyzerService) generateCacheKey(text string) string {
	h := md5.New()
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// 检查缓存。过期条目留给下次写入时清理，读路径不做修改。
func (s *AnalyzerService) checkAnalysisCache(cacheKey string) *models.NovelAnalysis {
	s.analysisCache.mutex.RLock()
	defer s.analysisCache.mutex.RUnlock()

	if cached, exists := s.analysisCache.cache[cacheKey]; exists {
		if time.Since(cached.Timestamp) < s.analysisCache.expiration {
			return cached.Result
		}
	}

	return nil
}

// 添加到缓存，顺带清理过期条目
func (s *AnalyzerService) addToAnalysisCache(cacheKey string, result *models.NovelAnalysis) {
	s.analysisCache.mutex.Lock()
	defer s.analysisCache.mutex.Unlock()

	now := time.Now()
	for key, cached := range s.analysisCache.cache {
		if now.Sub(cached.Timestamp) >= s.analysisCache.expiration {
			delete(s.analysisCache.cache, key)
		}
	}

	s.analysisCache.cache[cacheKey] = &CachedAnalysis{
		Result:    result,
		Timestamp: now,
	}
}
