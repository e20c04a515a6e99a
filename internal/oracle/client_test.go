package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONPlainObject(t *testing.T) {
	raw := `{"summary": "要点", "score": 80}`
	assert.Equal(t, raw, extractJSON(raw))
}

func TestExtractJSONInsideCodeFence(t *testing.T) {
	raw := "以下是分析结果：\n```json\n{\"importance\": \"重要\"}\n```\n希望有帮助。"
	assert.Equal(t, `{"importance": "重要"}`, extractJSON(raw))

	bare := "```\n[{\"id\": 1}]\n```"
	assert.Equal(t, `[{"id": 1}]`, extractJSON(bare))
}

func TestExtractJSONSurroundedByProse(t *testing.T) {
	raw := `根据您提供的文章，结果如下 {"tags": ["人工智能"], "nested": {"k": "v"}} 以上。`
	assert.Equal(t, `{"tags": ["人工智能"], "nested": {"k": "v"}}`, extractJSON(raw))
}

func TestExtractJSONPrefersEarlierArray(t *testing.T) {
	raw := `[{"a": 1}, {"b": 2}] trailing {"ignored": true}`
	assert.Equal(t, `[{"a": 1}, {"b": 2}]`, extractJSON(raw))
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	raw := `{"text": "包含 } 和 \" 的内容", "n": 1}`
	assert.Equal(t, raw, extractJSON(raw))
}

func TestExtractJSONUnbalancedOrMissing(t *testing.T) {
	assert.Empty(t, extractJSON("没有任何结构化内容"))
	assert.Empty(t, extractJSON(`{"never": "closed"`))
}
