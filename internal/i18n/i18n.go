// Package i18n holds the localized prompts and interface strings.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

// Key names a localized message.
type Key string

const (
	SourceLabel              Key = "source_label"
	CLIInputPrompt           Key = "cli_input_prompt"
	CLIAugmentedQuery        Key = "cli_augmented_query"
	CLIAnswerLabel           Key = "cli_answer_label"
	AugmentPromptHistory     Key = "augment_prompt_history"
	AugmentPromptNoHistory   Key = "augment_prompt_no_history"
	ServiceOriginalAugmented Key = "service_original_augmented"
	ChatPromptTemplate       Key = "chat_prompt_template"
	HTMLLang                 Key = "html_lang"
	UIPlaceholder            Key = "ui_placeholder"
	UISend                   Key = "ui_send"
	UIThinking               Key = "ui_thinking"
	UIErrorPrefix            Key = "ui_error_prefix"
	UIRequestFailed          Key = "ui_request_failed"
	UISourceRef              Key = "ui_source_ref"
)

var supported = []language.Tag{language.Chinese, language.English}

var matcher = language.NewMatcher(supported)

var tables = map[language.Tag]map[Key]string{
	language.Chinese: zh,
	language.English: en,
}

// Catalog returns messages in one language.
type Catalog struct {
	tag  language.Tag
	msgs map[Key]string
}

// For returns the catalog best matching lang. Unknown or malformed tags get Chinese.
func For(lang string) *Catalog {
	_, idx := language.MatchStrings(matcher, lang)
	tag := supported[idx]
	return &Catalog{tag: tag, msgs: tables[tag]}
}

// Lang returns the catalog's base language, "zh" or "en".
func (c *Catalog) Lang() string {
	base, _ := c.tag.Base()
	return base.String()
}

// Get returns the message for key, or "" when missing.
func (c *Catalog) Get(key Key) string { return c.msgs[key] }

// Format fills the positional verbs of the message for key.
func (c *Catalog) Format(key Key, args ...any) string {
	return fmt.Sprintf(c.msgs[key], args...)
}
