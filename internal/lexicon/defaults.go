// internal/lexicon/defaults.go
package lexicon

// 默认词表。覆盖常见白话小说用词，调用方可通过 Add* 按作品扩充。

// 场景转换标记：时间跳转与空间切换的篇章提示词
var defaultSceneMarkers = []string{
	"此时", "这时", "那时", "与此同时", "同时", "另一边", "另一方面",
	"第二天", "次日", "翌日", "过了", "之后", "后来", "不久",
	"突然", "忽然", "猛然", "转眼", "一晃", "片刻",
}

// 动作动词
var defaultActionVerbs = []string{
	"走", "跑", "跳", "站", "坐", "躺", "转", "看", "望", "瞧",
	"听", "说", "笑", "哭", "叫", "喊", "拿", "抓", "扔", "打",
	"推", "拉", "举", "放", "开", "关", "穿", "脱", "吃", "喝",
	"睡", "醒", "起", "飞", "游", "爬", "摔", "倒", "倾", "握",
	"指", "挥", "摇", "点", "摸", "碰", "踢", "撞", "靠", "倚",
}

// 积极情感词
var defaultPositiveWords = []string{
	"高兴", "快乐", "开心", "幸福", "喜悦", "愉快", "兴奋", "激动",
	"欢乐", "美好", "温暖", "甜蜜", "满足", "欣慰", "舒适", "轻松",
	"愉悦", "欢喜", "喜爱", "欢笑", "笑容", "微笑", "灿烂", "明亮",
}

// 消极情感词
var defaultNegativeWords = []string{
	"悲伤", "难过", "痛苦", "伤心", "哀愁", "忧伤", "悲痛", "凄凉",
	"沮丧", "失望", "绝望", "无助", "孤独", "寂寞", "冷清", "凄惨",
	"恐惧", "害怕", "担心", "焦虑", "紧张", "不安", "愤怒", "生气",
	"愤恨", "仇恨", "厌恶", "憎恨", "烦躁", "烦恼", "苦恼", "忧虑",
}

// 说话归属动词：出现在引语前的 "XX说" 类动词
var defaultAttributionVerbs = []string{
	"说", "道", "问", "答", "笑道", "冷笑", "怒道", "喝道",
}
