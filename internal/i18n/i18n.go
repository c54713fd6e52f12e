// Package i18n 提供审批通知的本地化模板。
//
// 模板表是 (MessageKey, Language) -> Template 的静态查找表，启动时通过 Validate
// 断言每个消息键都覆盖了全部支持的语言。Render 永不失败：
// 精确语言 → 默认语言 → 通用兜底文案。
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// MessageKey 审批通知消息键（封闭枚举）
type MessageKey string

const (
	KeyReviewRequired     MessageKey = "review-required"
	KeyApprovalRequired   MessageKey = "approval-required"
	KeyAckRequired        MessageKey = "acknowledgment-required"
	KeyValidationRequired MessageKey = "validation-required"
	KeySigned             MessageKey = "signed"
	KeyAwaitingValidation MessageKey = "awaiting-validation"
	KeySubmitted          MessageKey = "submitted"
	KeyApproved           MessageKey = "approved"
	KeyRejected           MessageKey = "rejected"
	KeyFinalized          MessageKey = "finalized"
)

// Keys 全部消息键
var Keys = []MessageKey{
	KeyReviewRequired,
	KeyApprovalRequired,
	KeyAckRequired,
	KeyValidationRequired,
	KeySigned,
	KeyAwaitingValidation,
	KeySubmitted,
	KeyApproved,
	KeyRejected,
	KeyFinalized,
}

// Language 支持的语言
type Language string

const (
	Chinese Language = "zh"
	English Language = "en"

	// DefaultLanguage 缺省语言
	DefaultLanguage = Chinese
)

// Languages 全部支持的语言
var Languages = []Language{Chinese, English}

// matcher 按 BCP 47 匹配到支持的语言，顺序与 Languages 一致
var matcher = language.NewMatcher([]language.Tag{
	language.Chinese,
	language.English,
})

// ParseLanguage 将任意语言标签（zh-CN、en_US、EN 等）规范化为支持的语言
// ok=false 表示无法识别或不受支持
func ParseLanguage(raw string) (Language, bool) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return DefaultLanguage, false
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return DefaultLanguage, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultLanguage, false
	}
	return Languages[idx], true
}

// Params 模板参数，未提供的字段渲染为空字符串
type Params struct {
	DocTitle      string
	DocNumber     string
	RequesterName string
	SignerName    string
	Role          string
	Reason        string
	Category      string
}

func (p Params) replacer() *strings.Replacer {
	return strings.NewReplacer(
		"{docTitle}", p.DocTitle,
		"{docNumber}", p.DocNumber,
		"{requesterName}", p.RequesterName,
		"{signerName}", p.SignerName,
		"{role}", p.Role,
		"{reason}", p.Reason,
		"{category}", p.Category,
	)
}

// Template 单条模板
type Template struct {
	Title   string
	Message string
}

// Rendered 渲染结果
type Rendered struct {
	Title   string
	Message string
}

// fallback 模板缺失时的通用兜底文案
var fallback = map[Language]Template{
	Chinese: {Title: "新通知", Message: "您有一条新的文档通知"},
	English: {Title: "New notification", Message: "You have a new document notification"},
}

// Render 渲染消息键对应的标题与正文
func Render(key MessageKey, lang Language, params Params) Rendered {
	tpl, ok := lookup(key, lang)
	if !ok {
		tpl, ok = lookup(key, DefaultLanguage)
	}
	if !ok {
		tpl, ok = fallback[lang]
		if !ok {
			tpl = fallback[DefaultLanguage]
		}
	}

	r := params.replacer()
	return Rendered{
		Title:   r.Replace(tpl.Title),
		Message: r.Replace(tpl.Message),
	}
}

func lookup(key MessageKey, lang Language) (Template, bool) {
	byLang, ok := templates[key]
	if !ok {
		return Template{}, false
	}
	tpl, ok := byLang[lang]
	if !ok || tpl.Title == "" || tpl.Message == "" {
		return Template{}, false
	}
	return tpl, true
}

// LevelMessageKey 审批层级对应的待办消息键：1 审核、2 批准、3 知悉
func LevelMessageKey(level int) (MessageKey, bool) {
	switch level {
	case 1:
		return KeyReviewRequired, true
	case 2:
		return KeyApprovalRequired, true
	case 3:
		return KeyAckRequired, true
	}
	return "", false
}

// Validate 检查模板表完整性：每个消息键都必须有全部语言的非空标题和正文
func Validate() error {
	var missing []string
	for _, key := range Keys {
		for _, lang := range Languages {
			if _, ok := lookup(key, lang); !ok {
				missing = append(missing, fmt.Sprintf("%s/%s", key, lang))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("本地化模板缺失: %s", strings.Join(missing, ", "))
	}
	return nil
}
