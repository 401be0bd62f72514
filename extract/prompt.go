package extract

import (
	"fmt"
	"strings"

	"github.com/davepan/kgraph/lang"
)

const systemPrompt = "You are a knowledge graph extraction assistant. Output only valid JSON."

const promptHeaderZH = `你是一个知识图谱构建专家。请从以下句子中抽取所有的实体关系三元组。

要求：
1. 输出格式：JSON数组，每个元素是 {"subject": "主语实体", "relation": "关系", "object": "宾语实体"}
2. 关系类型应该是动词或动词短语，如："包括"、"用于"、"基于"、"连接"、"控制"等
3. 只抽取明确存在的关系，不要推理或猜测
4. 实体名称保持原文，包括缩写（如CBTC、ZC、ATS）
5. 如果某句子没有明确关系，该句返回空数组

句子列表：
`

const promptFooterZH = "\n请直接输出JSON数组，不要有其他解释文字："

const promptHeaderEN = `You are a knowledge graph expert. Extract all entity relation triples from the following sentences.

Requirements:
1. Output format: JSON array, each element is {"subject": "subject entity", "relation": "relation", "object": "object entity"}
2. Relations should be verbs or verb phrases
3. Only extract explicitly stated relations, do not infer
4. Keep entity names as they appear in text, including abbreviations
5. If a sentence has no clear relations, return empty array for that sentence

Sentences:
`

const promptFooterEN = "\nOutput JSON array only, no explanations:"

// buildPrompt renders the extraction prompt for a batch of sentences,
// numbered so the model can report per-sentence results.
func buildPrompt(sentences []string, language lang.Language) string {
	header, footer := promptHeaderEN, promptFooterEN
	if language == lang.Chinese {
		header, footer = promptHeaderZH, promptFooterZH
	}

	var b strings.Builder
	b.WriteString(header)
	for i, s := range sentences {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString(footer)
	return b.String()
}
