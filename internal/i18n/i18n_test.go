package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForMatchesLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"zh", "zh"},
		{"en", "en"},
		{"en-US", "en"},
		{"zh-CN", "zh"},
		{"fr", "zh"},
		{"", "zh"},
		{"not a tag!", "zh"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, For(tt.in).Lang())
		})
	}
}

func TestTablesHaveSameKeys(t *testing.T) {
	for k := range zh {
		assert.NotEmpty(t, en[k], "en missing %s", k)
	}
	for k := range en {
		assert.NotEmpty(t, zh[k], "zh missing %s", k)
	}
}

func TestNoFabricationDirectivePresent(t *testing.T) {
	assert.Contains(t, For("en").Get(ChatPromptTemplate), "No relevant information found based on current documents")
	assert.Contains(t, For("zh").Get(ChatPromptTemplate), "基于当前文档未找到相关说明")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Original: a -> Augmented: b", For("en").Format(ServiceOriginalAugmented, "a", "b"))
	assert.Equal(t, "Source", For("en").Get(SourceLabel))
}
