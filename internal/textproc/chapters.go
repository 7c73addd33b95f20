// internal/textproc/chapters.go
package textproc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// 章节标题模板，逐行前缀匹配，同一部手稿允许混用多种格式：
//   第X章 / 第X回 / 第X节 / 第X卷
//   X、标题
//   Chapter N / Part N（数字或英文数词，大小写不限）
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^第[一二三四五六七八九十百千万零0-9]+[章回节卷]`),
	regexp.MustCompile(`^[一二三四五六七八九十百千万0-9]+、`),
	regexp.MustCompile(`(?i)^(?:chapter|part)\s+(?:[0-9]+|` + ordinalWordAlt + `)\b`),
}

var (
	digitsRe     = regexp.MustCompile(`[0-9]+`)
	cnNumberRe   = regexp.MustCompile(`第([一二三四五六七八九十百千万零]+)[章回节卷]`)
	cnEnumRe     = regexp.MustCompile(`^([一二三四五六七八九十百千万]+)、`)
	latinOrdinal = regexp.MustCompile(`(?i)(?:chapter|part)\s+([a-z]+)`)
)

// ChapterParser 把整部手稿切成章节
type ChapterParser struct{}

// NewChapterParser 构造章节解析器
func NewChapterParser() *ChapterParser { return &ChapterParser{} }

// Parse 逐行扫描文本，识别章节标题并切出章节
//
// 命中标题行即关闭上一章（正文去掉尾部空行）、开启新章。
// 第一个标题之前的文本直接丢弃——这是明确策略而非疏漏：
// 没有标题的内容不该被虚构成无名章节，需要整体分析的调用方
// 直接走 Processor，流水线层对无章节手稿另有包装。
// 空输入返回空列表。
func (cp *ChapterParser) Parse(text string) []models.ChapterRecord {
	chapters := []models.ChapterRecord{}
	var open bool
	var title string
	var body []string

	flush := func() {
		if !open {
			return
		}
		content := strings.TrimSpace(strings.Join(body, "\n"))
		rec := models.ChapterRecord{
			Title:      title,
			Content:    content,
			Paragraphs: paragraphsOf(content),
		}
		if n, ok := cp.ExtractChapterNumber(title); ok {
			rec.Number = &n
		}
		chapters = append(chapters, rec)
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if isChapterHeading(trimmed) {
			flush()
			open = true
			title = trimmed
			body = body[:0]
			continue
		}
		if open {
			body = append(body, line)
		}
	}
	flush()

	return chapters
}

func isChapterHeading(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range headingPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// paragraphsOf 把章节正文按空行切成去空白的非空段落
func paragraphsOf(content string) []string {
	blocks := splitBlocks(content)
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, strings.TrimSpace(b))
	}
	return out
}

// ExtractChapterNumber 从标题中提取章节号
//
// 依次尝试：阿拉伯数字、中文数字（支持 二十/二十三 这类复合写法）、
// Chapter/Part 后的英文数词（one 到 twenty）。都不中返回 (0, false)，
// 缺席不是 0 也不是错误。
func (cp *ChapterParser) ExtractChapterNumber(title string) (int, bool) {
	if m := digitsRe.FindString(title); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, true
		}
	}

	for _, re := range []*regexp.Regexp{cnNumberRe, cnEnumRe} {
		if m := re.FindStringSubmatch(title); m != nil {
			if n, ok := chineseToInt(m[1]); ok {
				return n, true
			}
		}
	}

	if m := latinOrdinal.FindStringSubmatch(title); m != nil {
		if n, ok := englishOrdinals[strings.ToLower(m[1])]; ok {
			return n, true
		}
	}

	return 0, false
}

var englishOrdinals = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

// ordinalWordAlt 是标题模板里英文数词的选择分支
const ordinalWordAlt = `one|two|three|four|five|six|seven|eight|nine|ten|` +
	`eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty`

var cnDigits = map[rune]int{
	'零': 0, '一': 1, '二': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// chineseToInt 把中文数字转成整数，支持 十/百/千/万 量级的复合写法
func chineseToInt(s string) (int, bool) {
	total := 0   // 已结算的万段
	section := 0 // 当前万段内已结算部分
	cur := 0     // 待结算的个位数字

	for _, r := range s {
		if d, ok := cnDigits[r]; ok {
			cur = d
			continue
		}
		switch r {
		case '十', '百', '千':
			unit := 10
			if r == '百' {
				unit = 100
			} else if r == '千' {
				unit = 1000
			}
			if cur == 0 {
				cur = 1 // 十 开头表示一十
			}
			section += cur * unit
			cur = 0
		case '万':
			section += cur
			if section == 0 {
				section = 1
			}
			total += section * 10000
			section, cur = 0, 0
		default:
			return 0, false
		}
	}

	n := total + section + cur
	return n, n > 0
}
