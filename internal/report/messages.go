package report

// messages 是一种报告语言的全部固定文本。
type messages struct {
	noNews    string
	itemBlock string // 标题、链接、摘要
	prompt    string // 参数为拼接后的新闻数据
	fatal     string // 参数为模型标识和错误
	exhausted string // 参数为最后错误和模型列表
}

var catalog = map[string]messages{
	"ko": {
		noNews:    "최근 3일 이내에 발행된 새로운 뉴스가 없습니다.",
		itemBlock: "제목: %s\n링크: %s\n요약: %s\n---\n",
		prompt: `
Role: 전문 IT 테크 저널리스트
Task: 수집된 뉴스 기사들을 분석하여 한 장의 요약 보고서 작성

수집된 뉴스 데이터:
%s

Format: 
1. ## [토픽명] 형태로 대분류 (3~5개 핵심 토픽으로 그룹화)
2. - [뉴스 제목](링크) : 한 줄 핵심 요약
3. 오늘 IT 업계의 주요 시사점 요약

중요: 각 뉴스 하단에 원문 피드 [링크]를 반드시 포함하세요. 한국어로 작성하세요.
`,
		fatal: "AI 분석 중 치명적 오류 발생 (%s): %v",
		exhausted: "모든 AI 모델 호출에 실패했습니다.\n" +
			"마지막 오류: %v\n\n" +
			"계약된 할당량(Quota)이 0이거나 API 키가 활성화되는 중일 수 있습니다.\n" +
			"시도한 모델 목록: %s",
	},
	"en": {
		noNews:    "No new articles were published in the last 3 days.",
		itemBlock: "Title: %s\nLink: %s\nSummary: %s\n---\n",
		prompt: `
Role: Professional IT technology journalist
Task: Analyze the collected news articles and write a one-page summary report

Collected news data:
%s

Format: 
1. Group into 3-5 core topics, each headed "## [Topic]"
2. - [News title](link) : one-line key summary
3. Close with a summary of today's key takeaways for the IT industry

Important: Every news item must keep its original feed [link]. Write in English.
`,
		fatal: "Fatal error during AI analysis (%s): %v",
		exhausted: "Every AI model call failed.\n" +
			"Last error: %v\n\n" +
			"The contracted quota may be 0, or the API key may still be activating.\n" +
			"Models tried: %s",
	},
	"zh": {
		noNews:    "最近 3 天内没有发布新的新闻。",
		itemBlock: "标题: %s\n链接: %s\n摘要: %s\n---\n",
		prompt: `
Role: 专业 IT 科技记者
Task: 分析收集到的新闻，撰写一页摘要报告

收集到的新闻数据:
%s

Format: 
1. 以 ## [主题] 形式分为 3~5 个核心主题
2. - [新闻标题](链接) : 一句话核心摘要
3. 最后总结今日 IT 行业的主要启示

重要: 每条新闻必须保留原始 [链接]。使用中文撰写。
`,
		fatal: "AI 分析时发生致命错误 (%s): %v",
		exhausted: "所有 AI 模型调用均失败。\n" +
			"最后错误: %v\n\n" +
			"可能是配额为 0，或 API Key 仍在激活中。\n" +
			"尝试过的模型: %s",
	},
}

// lookup 返回指定语言的文本，未知语言退回韩语。
func lookup(lang string) messages {
	if m, ok := catalog[lang]; ok {
		return m
	}
	return catalog["ko"]
}
