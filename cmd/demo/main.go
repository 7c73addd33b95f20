// cmd/demo/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Corphon/SceneWeaverMCP/internal/app"
	"github.com/Corphon/SceneWeaverMCP/internal/config"
	"github.com/Corphon/SceneWeaverMCP/internal/di"
	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/services"
	"github.com/Corphon/SceneWeaverMCP/internal/utils"
)

// 内置的演示手稿：两个章节、带标题前导语、对话与动作句
const sampleNovel = `这是一部演示用的小说稿件。

第一章 初遇

张三走进了咖啡馆，环顾四周。窗外阳光明媚，街道上人来人往。
张三说："你好，请问这里有人吗？"

李四抬起头，微笑着放下手中的书。
李四答："没有人，请坐吧。"

两人相谈甚欢，气氛十分愉快。

第二章 离别

与此同时，车站的大厅里冷冷清清。
张三跑向站台，脸上满是焦急。
李四问："你真的要走吗？"
张三说："对不起，我必须离开。"

列车缓缓开动，站台上只剩下悲伤的背影。`

func main() {
	fmt.Println("🚀 SceneWeaverMCP Console Demo")
	fmt.Println("=================================")

	// 初始化配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Printf("❌ 加载基础配置失败: %v", err)
		return
	}

	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Printf("❌ 初始化配置系统失败: %v", err)
		return
	}

	// 初始化日志系统
	logFile := fmt.Sprintf("logs/demo_%s.log", time.Now().Format("2006-01-02"))
	os.MkdirAll("logs", 0755)
	if err := utils.InitLogger(logFile); err != nil {
		log.Printf("⚠️ 无法初始化结构化日志: %v", err)
		log.Println("继续运行...")
	}

	// 初始化服务（含分词词典加载，首次运行会稍慢）
	fmt.Println("⏳ 正在加载分词词典...")
	if err := app.InitServices(); err != nil {
		log.Printf("❌ 初始化服务失败: %v", err)
		return
	}
	fmt.Println("✅ 服务初始化完成")

	for {
		showMenu()
		choice := getUserInput("请选择: ")

		switch choice {
		case "1", "analyze":
			analyzeSample()
		case "2", "chapters":
			parseChapters()
		case "3", "custom":
			analyzeCustomText()
		case "4", "pipeline":
			runPipeline()
		case "5", "lexicon":
			extendLexicon()
		case "6", "stats":
			showStatistics()
		case "0", "quit", "exit":
			fmt.Println("👋 再见！")
			return
		default:
			fmt.Println("⚠️ 无效的选择，请重试")
		}
		fmt.Println()
	}
}

// 显示菜单
func showMenu() {
	printBox("SceneWeaverMCP 演示菜单", strings.Join([]string{
		"1. 分析示例手稿",
		"2. 章节切分演示",
		"3. 分析自定义文本",
		"4. 运行完整流水线",
		"5. 扩充词表",
		"6. 查看生成统计",
		"0. 退出",
	}, "\n  "))
}

// 获取用户输入
func getUserInput(prompt string) string {
	fmt.Print(prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

// analyzeSample 对内置示例手稿做完整分析并打印场景记录
func analyzeSample() {
	analyzer := mustResolve[*services.AnalyzerService]("analyzer")

	fmt.Println("⏳ 分析示例手稿...")
	analysis, err := analyzer.AnalyzeNovel(sampleNovel)
	if err != nil {
		fmt.Printf("❌ 分析失败: %v\n", err)
		return
	}

	fmt.Printf("📖 手稿长度 %d 字，%d 章，%d 个场景，%d 条对话\n",
		analysis.TextLength, analysis.ChapterCount, analysis.SceneCount, analysis.DialogueCount)

	for i, scene := range analysis.Scenes {
		printScene(i+1, &scene)
	}
}

// parseChapters 演示章节切分与章节号提取
func parseChapters() {
	analyzer := mustResolve[*services.AnalyzerService]("analyzer")

	chapters := analyzer.ChapterParser().Parse(sampleNovel)
	fmt.Printf("📚 共解析出 %d 个章节（标题前的导语按策略丢弃）\n", len(chapters))

	for _, ch := range chapters {
		number := "无"
		if ch.Number != nil {
			number = fmt.Sprintf("%d", *ch.Number)
		}
		fmt.Printf("  • %s （章节号: %s，%d 个段落，正文 %d 字）\n",
			ch.Title, number, len(ch.Paragraphs), utf8.RuneCountInString(ch.Content))
	}
}

// analyzeCustomText 分析用户输入的单段文本
func analyzeCustomText() {
	fmt.Println("请输入要分析的文本（输入空行结束）：")

	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}

	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		fmt.Println("⚠️ 未输入任何文本")
		return
	}

	analyzer := mustResolve[*services.AnalyzerService]("analyzer")
	record, err := analyzer.AnalyzeSceneText(text)
	if err != nil {
		fmt.Printf("❌ 分析失败: %v\n", err)
		return
	}

	printScene(1, record)
}

// runPipeline 创建演示工程并执行完整流水线
func runPipeline() {
	projects := mustResolve[*services.ProjectService]("project")
	pipeline := mustResolve[*services.PipelineService]("pipeline")
	progress := mustResolve[*services.ProgressService]("progress")

	project, err := projects.CreateProject("演示工程", "demo.txt", sampleNovel)
	if err != nil {
		fmt.Printf("❌ 创建工程失败: %v\n", err)
		return
	}
	fmt.Printf("📁 工程已创建: %s\n", project.ID)

	taskID := fmt.Sprintf("demo_%d", time.Now().UnixNano())
	tracker := progress.CreateTracker(taskID)

	// 控制台直接消费进度更新
	updates := tracker.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range updates {
			fmt.Printf("  [%3d%%] %s\n", update.Progress, update.Message)
			if update.Status == "completed" || update.Status == "failed" {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	metadata, err := pipeline.Run(ctx, project.ID, "console", tracker)
	<-done
	tracker.Unsubscribe(updates)

	if err != nil {
		fmt.Printf("❌ 流水线失败: %v\n", err)
		return
	}

	fmt.Printf("🎬 流水线完成：%d 个镜头，%d 个角色\n", metadata.TotalScenes, len(metadata.Characters))
	for _, shot := range metadata.Shots {
		fmt.Printf("  镜头 %d [%s] %s\n", shot.ShotIndex, shot.Mood, shot.ImagePrompt)
		for _, line := range shot.TTSLines {
			fmt.Printf("    🔊 %s\n", line)
		}
	}
}

// extendLexicon 向词表追加自定义词条
func extendLexicon() {
	analyzer := mustResolve[*services.AnalyzerService]("analyzer")
	lex := analyzer.Processor().Lexicon()

	fmt.Println("可用词表类别:")
	fmt.Println("  scene_markers / action_verbs / positive_words / negative_words / attribution_verbs")

	category := getUserInput("词表类别: ")
	if !lexicon.ValidCategory(category) {
		fmt.Printf("⚠️ 未知词表类别: %s\n", category)
		return
	}

	words := getUserInput("词条（空格分隔）: ")
	fields := strings.Fields(words)
	if len(fields) == 0 {
		fmt.Println("⚠️ 未输入任何词条")
		return
	}

	cat := lexicon.Category(category)
	lex.Add(cat, fields...)
	fmt.Printf("✅ 词表 %s 已扩充至 %d 个词条，对后续分析立即生效\n", category, lex.Len(cat))
}

// showStatistics 展示生成统计
func showStatistics() {
	stats := mustResolve[*services.StatsService]("stats")

	summary, err := stats.Summary()
	if err != nil {
		fmt.Printf("❌ 查询统计失败: %v\n", err)
		return
	}

	printBox("生成统计", fmt.Sprintf(
		"会话总数: %d\n  上传文件: %d\n  处理字数: %d\n  生成场景: %d",
		summary.TotalSessions, summary.TotalUploads, summary.TotalTextChars, summary.TotalScenes))

	recent, err := stats.ListStatistics(5)
	if err != nil || len(recent) == 0 {
		return
	}

	fmt.Println("最近会话:")
	for _, stat := range recent {
		fmt.Printf("  %s  %s  %d 字 → %d 场景\n",
			stat.CreatedAt.Format("2006-01-02 15:04"), stat.SessionID,
			stat.UploadTextChars, stat.GeneratedSceneCount)
	}
}

// printScene 打印一条场景记录
func printScene(index int, scene *models.SceneRecord) {
	fmt.Printf("\n──── 场景 %d ────\n", index)
	fmt.Printf("情感: %s（强度 %.2f）\n", scene.Emotion, scene.EmotionIntensity)

	if len(scene.Characters) > 0 {
		fmt.Printf("角色: %s\n", strings.Join(scene.Characters, "、"))
	}
	if scene.Description != "" {
		fmt.Printf("描述: %s\n", scene.Description)
	}
	for _, action := range scene.Actions {
		fmt.Printf("动作: %s\n", action)
	}
	for _, d := range scene.Dialogues {
		fmt.Printf("对话: %s：%s\n", d.Speaker, d.Text)
	}
}

// printBox 以边框样式打印一段内容
func printBox(title, body string) {
	fmt.Println("┌─────────────────────────────────┐")
	if title != "" {
		fmt.Printf("  %s\n", title)
	}
	fmt.Printf("  %s\n", body)
	fmt.Println("└─────────────────────────────────┘")
}

// mustResolve 从容器中取出服务，演示程序缺服务直接退出
func mustResolve[T any](name string) T {
	return di.MustResolve[T](di.GetContainer(), name)
}
