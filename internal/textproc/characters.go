// internal/textproc/characters.go
package textproc

import (
	"fmt"
	"sort"

	"github.com/Corphon/SceneWeaverMCP/internal/tokenizer"
)

// IdentifyCharacters 识别文本中的角色名
//
// 取词性标注为人名的词，按出现次数降序返回；次数相同按首次出现先后。
// 没有人名词时返回空列表；分词失败按致命错误上抛，不做兜底。
func (p *Processor) IdentifyCharacters(text string) ([]string, error) {
	toks, err := p.tok.Tag(text)
	if err != nil {
		return nil, fmt.Errorf("词性标注失败: %w", err)
	}

	counts := make(map[string]int)
	names := []string{}
	for _, t := range toks {
		if t.Pos != tokenizer.PersonTag {
			continue
		}
		if counts[t.Text] == 0 {
			names = append(names, t.Text)
		}
		counts[t.Text]++
	}

	sort.SliceStable(names, func(i, j int) bool { return counts[names[i]] > counts[names[j]] })
	return names, nil
}
