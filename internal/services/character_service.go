// internal/services/character_service.go
package services

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// 候选人名：连续的 2-4 个汉字
var namePattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,4}`)

// 高频但不可能是人名的词
var commonWords = map[string]bool{
	"这个": true, "那个": true, "什么": true, "怎么": true, "为什么": true,
	"可以": true, "不是": true, "是的": true, "但是": true, "然而": true,
	"因为": true, "所以": true, "如果": true, "虽然": true, "而且": true,
	"或者": true, "自己": true, "我们": true, "他们": true, "她们": true,
	"它们": true, "大家": true, "人们": true, "东西": true, "地方": true,
	"时候": true, "现在": true, "之前": true, "以后": true, "一直": true,
	"已经": true, "还是": true,
}

// CharacterService 维护作品的角色注册表：
// 候选名提取、出场频次统计和供下游生图使用的角色档案。
type CharacterService struct {
	mutex      sync.RWMutex
	characters map[string]*models.CharacterProfile
	nameFreq   map[string]int
	firstSeen  map[string]int // 候选名首次出现的序号，同频时保持先出现者在前
	seenCount  int
	regOrder   []string // 注册顺序
	minFreq    int
}

// NewCharacterService 创建角色服务
func NewCharacterService(minFrequency int) *CharacterService {
	if minFrequency <= 0 {
		minFrequency = 3
	}

	return &CharacterService{
		characters: make(map[string]*models.CharacterProfile),
		nameFreq:   make(map[string]int),
		firstSeen:  make(map[string]int),
		minFreq:    minFrequency,
	}
}

// ExtractCharacters 从文本中提取主要角色候选名。
// 频次跨调用累计，同一个服务实例对应一部作品。
func (s *CharacterService) ExtractCharacters(text string) []string {
	potential := namePattern.FindAllString(text, -1)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, name := range potential {
		if _, ok := s.firstSeen[name]; !ok {
			s.firstSeen[name] = s.seenCount
			s.seenCount++
		}
		s.nameFreq[name]++
	}

	main := []string{}
	for name, count := range s.nameFreq {
		if count >= s.minFreq && !commonWords[name] {
			main = append(main, name)
		}
	}

	sort.Slice(main, func(i, j int) bool {
		fi, fj := s.nameFreq[main[i]], s.nameFreq[main[j]]
		if fi != fj {
			return fi > fj
		}
		return s.firstSeen[main[i]] < s.firstSeen[main[j]]
	})

	return main
}

// RegisterCharacter 注册角色。已存在的角色保持原档案不变。
// imageSeed 传 0 时根据角色名派生稳定种子。
func (s *CharacterService) RegisterCharacter(name, description string, appearance map[string]string, imageSeed int) *models.CharacterProfile {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.registerLocked(name, description, appearance, imageSeed)
}

func (s *CharacterService) registerLocked(name, description string, appearance map[string]string, imageSeed int) *models.CharacterProfile {
	if existing, ok := s.characters[name]; ok {
		return existing
	}

	if imageSeed == 0 {
		imageSeed = deriveImageSeed(name)
	}
	if appearance == nil {
		appearance = make(map[string]string)
	}

	now := time.Now()
	profile := &models.CharacterProfile{
		Name:        name,
		Description: description,
		Appearance:  appearance,
		ImageSeed:   imageSeed,
		CreatedAt:   now,
		LastUpdated: now,
	}

	s.characters[name] = profile
	s.regOrder = append(s.regOrder, name)

	return profile
}

// RegisterFromAnalysis 把分析结果中的出场角色登记进注册表。
// Frequency 记录角色出现的场景数，FirstScene 是首次出现的场景序号（从1开始）。
func (s *CharacterService) RegisterFromAnalysis(analysis *models.NovelAnalysis) {
	if analysis == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range analysis.Scenes {
		sceneOrdinal := i + 1
		for _, name := range analysis.Scenes[i].Characters {
			profile := s.registerLocked(name, "", nil, 0)

			profile.Frequency++
			if profile.FirstScene == 0 {
				profile.FirstScene = sceneOrdinal
			}
			profile.LastUpdated = time.Now()
		}
	}
}

// GetCharacter 获取角色档案
func (s *CharacterService) GetCharacter(name string) (*models.CharacterProfile, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	profile, ok := s.characters[name]
	return profile, ok
}

// GetAllCharacters 按注册顺序返回所有角色档案
func (s *CharacterService) GetAllCharacters() []*models.CharacterProfile {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	all := make([]*models.CharacterProfile, 0, len(s.regOrder))
	for _, name := range s.regOrder {
		all = append(all, s.characters[name])
	}
	return all
}

// UpdateCharacterAppearance 合并角色外貌属性
func (s *CharacterService) UpdateCharacterAppearance(name string, attrs map[string]string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	profile, ok := s.characters[name]
	if !ok {
		return false
	}

	for key, value := range attrs {
		profile.Appearance[key] = value
	}
	profile.LastUpdated = time.Now()

	return true
}

// CharacterPrompt 生成下游图像生成可用的角色提示词
func (s *CharacterService) CharacterPrompt(name string) string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	profile, ok := s.characters[name]
	if !ok {
		return fmt.Sprintf("角色：%s", name)
	}

	parts := []string{fmt.Sprintf("角色：%s", name)}

	if profile.Description != "" {
		parts = append(parts, fmt.Sprintf("描述：%s", profile.Description))
	}

	if len(profile.Appearance) > 0 {
		keys := make([]string, 0, len(profile.Appearance))
		for key := range profile.Appearance {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		attrs := make([]string, 0, len(keys))
		for _, key := range keys {
			attrs = append(attrs, fmt.Sprintf("%s: %s", key, profile.Appearance[key]))
		}
		parts = append(parts, fmt.Sprintf("外貌：%s", strings.Join(attrs, ", ")))
	}

	parts = append(parts, fmt.Sprintf("种子值：%d", profile.ImageSeed))

	return strings.Join(parts, ", ")
}

// deriveImageSeed 根据角色名派生稳定的图像种子，
// 同名角色在任何机器上拿到同一个种子
func deriveImageSeed(name string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	return int(h.Sum32() % 1000000)
}
