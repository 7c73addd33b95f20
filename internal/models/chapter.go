// internal/models/chapter.go
package models

// ChapterRecord 表示解析出的一个章节
//
// Number 为指针：标题中没有可识别的章节号时为 nil（缺席），而不是 0。
type ChapterRecord struct {
	Title      string   `json:"title"`                    // 原始标题行
	Content    string   `json:"content"`                  // 标题行之后、下一标题之前的正文
	Paragraphs []string `json:"paragraphs"`               // 按空行切分的非空段落
	Number     *int     `json:"chapter_number,omitempty"` // 章节号，无法提取时缺席
}
