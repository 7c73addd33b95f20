// internal/textproc/scenes.go
package textproc

import (
	"strings"
	"sync"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
)

// SplitIntoScenes 把文本切成有序的场景列表
//
// 先按空行切段，每段再扫描场景转换标记：标记出现在段落中间时，
// 紧贴标记之前追加一个切分点。各片段去除首尾空白，空片段丢弃。
// 空输入返回空列表而不是错误；没有空行也没有标记时，整个文本就是唯一场景。
func (p *Processor) SplitIntoScenes(text string) []string {
	scenes := []string{}
	for _, block := range splitBlocks(text) {
		for _, piece := range p.splitAtMarkers(block) {
			if s := strings.TrimSpace(piece); s != "" {
				scenes = append(scenes, s)
			}
		}
	}
	return scenes
}

// splitAtMarkers 在段落内部的每个标记起点前切开
func (p *Processor) splitAtMarkers(block string) []string {
	starts := p.markers.markerStarts(p.lex, block)
	if len(starts) == 0 {
		return []string{block}
	}

	var pieces []string
	cur := 0
	for _, s := range starts {
		if s > cur {
			pieces = append(pieces, block[cur:s])
			cur = s
		}
	}
	pieces = append(pieces, block[cur:])
	return pieces
}

// splitBlocks 按空行（整行去空白后为空）切出非空文本块，块内保留原始行
func splitBlocks(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// markerIndex 缓存由场景标记词表编译出的 Aho-Corasick 自动机
//
// 词表修订号变化时惰性重建。锁只保护缓存本身：词表扩充与分析不交错
// 是调用方的约定，这里的锁保证扩充之后的首批并发分析也不会踩到重建。
type markerIndex struct {
	mu    sync.RWMutex
	rev   uint64
	built bool
	empty bool
	ac    ahocorasick.AhoCorasick
}

// markerStarts 返回块内所有标记命中的字节起点，升序
//
// 采用最左最长匹配，嵌套标记（如 与此同时 里的 同时）只命中长词。
func (m *markerIndex) markerStarts(lex *lexicon.Lexicon, block string) []int {
	m.mu.RLock()
	if m.built && m.rev == lex.Rev() {
		ac, empty := m.ac, m.empty
		m.mu.RUnlock()
		return findStarts(ac, empty, block)
	}
	m.mu.RUnlock()

	m.mu.Lock()
	if !m.built || m.rev != lex.Rev() {
		patterns := lex.Words(lexicon.SceneMarkers)
		m.empty = len(patterns) == 0
		if !m.empty {
			builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
				AsciiCaseInsensitive: false,
				MatchOnlyWholeWords:  false,
				MatchKind:            ahocorasick.LeftMostLongestMatch,
			})
			m.ac = builder.Build(patterns)
		}
		m.rev = lex.Rev()
		m.built = true
	}
	ac, empty := m.ac, m.empty
	m.mu.Unlock()
	return findStarts(ac, empty, block)
}

func findStarts(ac ahocorasick.AhoCorasick, empty bool, block string) []int {
	if empty || block == "" {
		return nil
	}
	matches := ac.FindAll(block)
	if len(matches) == 0 {
		return nil
	}
	// FindAll 对嵌套词表会返回重叠命中（长词和其内部短词各一条），
	// 只保留不与前一命中重叠的起点，长词之内不再切分。
	starts := make([]int, 0, len(matches))
	prevEnd := -1
	for _, m := range matches {
		if m.Start() < prevEnd {
			continue
		}
		starts = append(starts, m.Start())
		prevEnd = m.End()
	}
	return starts
}
