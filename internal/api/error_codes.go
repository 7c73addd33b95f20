// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorForbidden     = "FORBIDDEN"

	// 工程相关错误
	ErrorProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrorProjectCreateFailed = "PROJECT_CREATE_FAILED"
	ErrorProjectNotAnalyzed  = "PROJECT_NOT_ANALYZED"

	// 分析相关错误
	ErrorAnalysisFailed    = "ANALYSIS_FAILED"
	ErrorTokenizerFailed   = "TOKENIZER_FAILED"
	ErrorTaskNotFound      = "TASK_NOT_FOUND"
	ErrorTextEmpty         = "TEXT_EMPTY"
	ErrorLexiconInvalid    = "LEXICON_INVALID"
	ErrorChapterParseEmpty = "CHAPTER_PARSE_EMPTY"

	// 角色相关错误
	ErrorCharacterNotFound = "CHARACTER_NOT_FOUND"

	// 文件相关错误
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"
	ErrorFileInvalid      = "FILE_INVALID"

	// 导出相关错误
	ErrorExportFailed        = "EXPORT_FAILED"
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"

	// 统计相关错误
	ErrorStatsUnavailable = "STATS_UNAVAILABLE"
)
