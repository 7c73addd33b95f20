// internal/services/character_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

func TestExtractCharactersByFrequency(t *testing.T) {
	svc := NewCharacterService(2)

	names := svc.ExtractCharacters("李明，王芳。李明！王芳？李明；")

	assert.Equal(t, []string{"李明", "王芳"}, names)
}

func TestExtractCharactersMinFrequency(t *testing.T) {
	svc := NewCharacterService(3)

	names := svc.ExtractCharacters("李明，王芳。李明！王芳？李明；")

	assert.Equal(t, []string{"李明"}, names)
}

func TestExtractCharactersFiltersCommonWords(t *testing.T) {
	svc := NewCharacterService(2)

	names := svc.ExtractCharacters("自己，自己。自己！李明，李明。")

	assert.NotContains(t, names, "自己")
	assert.Contains(t, names, "李明")
}

func TestExtractCharactersAccumulatesAcrossCalls(t *testing.T) {
	svc := NewCharacterService(3)

	first := svc.ExtractCharacters("李明，李明。")
	assert.Empty(t, first)

	second := svc.ExtractCharacters("李明！")
	assert.Equal(t, []string{"李明"}, second)
}

func TestExtractCharactersTieKeepsFirstAppearance(t *testing.T) {
	svc := NewCharacterService(2)

	names := svc.ExtractCharacters("王芳，李明。王芳！李明？")

	assert.Equal(t, []string{"王芳", "李明"}, names)
}

func TestExtractCharactersNoCandidates(t *testing.T) {
	svc := NewCharacterService(2)

	names := svc.ExtractCharacters("Hello, world. 123")

	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestRegisterCharacterDerivesStableSeed(t *testing.T) {
	first := NewCharacterService(0)
	second := NewCharacterService(0)

	a := first.RegisterCharacter("林小雨", "", nil, 0)
	b := second.RegisterCharacter("林小雨", "", nil, 0)

	assert.Equal(t, a.ImageSeed, b.ImageSeed)
	assert.GreaterOrEqual(t, a.ImageSeed, 0)
	assert.Less(t, a.ImageSeed, 1000000)
}

func TestRegisterCharacterExistingWins(t *testing.T) {
	svc := NewCharacterService(0)

	svc.RegisterCharacter("李明", "猎户", nil, 0)
	profile := svc.RegisterCharacter("李明", "樵夫", nil, 42)

	assert.Equal(t, "猎户", profile.Description)

	stored, ok := svc.GetCharacter("李明")
	require.True(t, ok)
	assert.Equal(t, "猎户", stored.Description)
}

func TestRegisterCharacterExplicitSeed(t *testing.T) {
	svc := NewCharacterService(0)

	profile := svc.RegisterCharacter("李明", "", nil, 777)

	assert.Equal(t, 777, profile.ImageSeed)
}

func TestGetAllCharactersKeepsRegistrationOrder(t *testing.T) {
	svc := NewCharacterService(0)

	svc.RegisterCharacter("王芳", "", nil, 0)
	svc.RegisterCharacter("李明", "", nil, 0)
	svc.RegisterCharacter("张叔", "", nil, 0)

	all := svc.GetAllCharacters()
	require.Len(t, all, 3)
	assert.Equal(t, "王芳", all[0].Name)
	assert.Equal(t, "李明", all[1].Name)
	assert.Equal(t, "张叔", all[2].Name)
}

func TestRegisterFromAnalysis(t *testing.T) {
	svc := NewCharacterService(0)

	analysis := &models.NovelAnalysis{
		Scenes: []models.SceneRecord{
			{Text: "…", Characters: []string{"李明"}},
			{Text: "…", Characters: []string{"李明", "王芳"}},
			{Text: "…", Characters: []string{"王芳"}},
		},
	}

	svc.RegisterFromAnalysis(analysis)

	liming, ok := svc.GetCharacter("李明")
	require.True(t, ok)
	assert.Equal(t, 2, liming.Frequency)
	assert.Equal(t, 1, liming.FirstScene)

	wangfang, ok := svc.GetCharacter("王芳")
	require.True(t, ok)
	assert.Equal(t, 2, wangfang.Frequency)
	assert.Equal(t, 2, wangfang.FirstScene)
}

func TestRegisterFromAnalysisNil(t *testing.T) {
	svc := NewCharacterService(0)

	svc.RegisterFromAnalysis(nil)

	assert.Empty(t, svc.GetAllCharacters())
}

func TestUpdateCharacterAppearanceMerges(t *testing.T) {
	svc := NewCharacterService(0)

	svc.RegisterCharacter("李明", "", map[string]string{"发色": "黑"}, 0)

	found := svc.UpdateCharacterAppearance("李明", map[string]string{"服装": "青衫", "发色": "灰"})
	require.True(t, found)

	profile, ok := svc.GetCharacter("李明")
	require.True(t, ok)
	assert.Equal(t, "灰", profile.Appearance["发色"])
	assert.Equal(t, "青衫", profile.Appearance["服装"])
}

func TestUpdateCharacterAppearanceUnknown(t *testing.T) {
	svc := NewCharacterService(0)

	found := svc.UpdateCharacterAppearance("不存在", map[string]string{"发色": "黑"})
	assert.False(t, found)
}

func TestCharacterPromptFormat(t *testing.T) {
	svc := NewCharacterService(0)

	profile := svc.RegisterCharacter("李明", "山村猎户",
		map[string]string{"发色": "黑", "服装": "粗布短打"}, 12345)

	prompt := svc.CharacterPrompt("李明")

	assert.Equal(t, "角色：李明, 描述：山村猎户, 外貌：发色: 黑, 服装: 粗布短打, 种子值：12345", prompt)
	assert.Equal(t, 12345, profile.ImageSeed)
}

func TestCharacterPromptUnregistered(t *testing.T) {
	svc := NewCharacterService(0)

	assert.Equal(t, "角色：无名", svc.CharacterPrompt("无名"))
}

func TestCharacterPromptWithoutAppearance(t *testing.T) {
	svc := NewCharacterService(0)

	svc.RegisterCharacter("王芳", "", nil, 99)

	assert.Equal(t, "角色：王芳, 种子值：99", svc.CharacterPrompt("王芳"))
}
