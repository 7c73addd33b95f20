// internal/lexicon/lexicon.go
// Package lexicon 维护驱动启发式分析的五类词表：
// 场景转换标记、动作动词、积极情感词、消极情感词、说话归属动词。
//
// 词表只增不减。并发约定：分析调用之间可以任意并发共享同一 Lexicon，
// 但扩充词表（Add*）不得与进行中的分析交错，需要由调用方在外部串行化；
// Lexicon 本身不加锁。扩充对之后的调用立即生效，对已产出的记录不回溯。
package lexicon

// Category 标识词表用途
type Category string

const (
	SceneMarkers     Category = "scene_markers"     // 场景转换标记
	ActionVerbs      Category = "action_verbs"      // 动作动词
	PositiveWords    Category = "positive_words"    // 积极情感词
	NegativeWords    Category = "negative_words"    // 消极情感词
	AttributionVerbs Category = "attribution_verbs" // 说话归属动词，如 说/道/问
)

// Lexicon 是五类词表的容器
//
// 除集合本身外还保留插入顺序，场景标记自动机等派生结构据此做确定性重建。
type Lexicon struct {
	sets  map[Category]map[string]struct{}
	order map[Category][]string
	rev   uint64
}

// New 返回载入默认词表的 Lexicon
func New() *Lexicon {
	l := Empty()
	l.Add(SceneMarkers, defaultSceneMarkers...)
	l.Add(ActionVerbs, defaultActionVerbs...)
	l.Add(PositiveWords, defaultPositiveWords...)
	l.Add(NegativeWords, defaultNegativeWords...)
	l.Add(AttributionVerbs, defaultAttributionVerbs...)
	return l
}

// Empty 返回不含任何默认词的 Lexicon，主要供测试使用
func Empty() *Lexicon {
	l := &Lexicon{
		sets:  make(map[Category]map[string]struct{}),
		order: make(map[Category][]string),
	}
	for _, c := range []Category{SceneMarkers, ActionVerbs, PositiveWords, NegativeWords, AttributionVerbs} {
		l.sets[c] = make(map[string]struct{})
	}
	return l
}

// Add 向指定词表追加词条，忽略空串与重复词
func (l *Lexicon) Add(cat Category, words ...string) {
	set, ok := l.sets[cat]
	if !ok {
		return
	}
	changed := false
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, dup := set[w]; dup {
			continue
		}
		set[w] = struct{}{}
		l.order[cat] = append(l.order[cat], w)
		changed = true
	}
	if changed {
		l.rev++
	}
}

// AddSceneMarkers 追加场景转换标记
func (l *Lexicon) AddSceneMarkers(words ...string) { l.Add(SceneMarkers, words...) }

// AddActionVerbs 追加动作动词
func (l *Lexicon) AddActionVerbs(words ...string) { l.Add(ActionVerbs, words...) }

// AddPositiveWords 追加积极情感词
func (l *Lexicon) AddPositiveWords(words ...string) { l.Add(PositiveWords, words...) }

// AddNegativeWords 追加消极情感词
func (l *Lexicon) AddNegativeWords(words ...string) { l.Add(NegativeWords, words...) }

// AddAttributionVerbs 追加说话归属动词
func (l *Lexicon) AddAttributionVerbs(words ...string) { l.Add(AttributionVerbs, words...) }

// Contains 判断词条是否在指定词表中
func (l *Lexicon) Contains(cat Category, word string) bool {
	_, ok := l.sets[cat][word]
	return ok
}

// IsActionVerb 判断是否动作动词
func (l *Lexicon) IsActionVerb(word string) bool { return l.Contains(ActionVerbs, word) }

// IsPositive 判断是否积极情感词
func (l *Lexicon) IsPositive(word string) bool { return l.Contains(PositiveWords, word) }

// IsNegative 判断是否消极情感词
func (l *Lexicon) IsNegative(word string) bool { return l.Contains(NegativeWords, word) }

// Words 返回指定词表的副本，按插入顺序
func (l *Lexicon) Words(cat Category) []string {
	src := l.order[cat]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Len 返回指定词表的词条数
func (l *Lexicon) Len(cat Category) int { return len(l.sets[cat]) }

// Rev 返回修订号，每次有效扩充后递增。
// 派生结构（标记自动机、归属动词正则）用它判断缓存是否过期。
func (l *Lexicon) Rev() uint64 { return l.rev }

// ValidCategory 判断外部传入的类别名是否合法
func ValidCategory(cat string) bool {
	switch Category(cat) {
	case SceneMarkers, ActionVerbs, PositiveWords, NegativeWords, AttributionVerbs:
		return true
	}
	return false
}
