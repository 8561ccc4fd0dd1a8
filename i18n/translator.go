package i18n

import (
	"fmt"
	"sort"
	"strings"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "got").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":     "invalid type",
		"required":         "required property missing",
		"unknown_key":      "unknown key",
		"too_small":        "value too small",
		"too_big":          "value too big",
		"too_short":        "too short",
		"too_long":         "too long",
		"pattern":          "does not match pattern",
		"invalid_enum":     "value not allowed",
		"no_match":         "no subschema matched",
		"forbidden":        "matches a forbidden schema",
		"wrong_ndim":       "wrong number of dimensions",
		"invalid_datatype": "incompatible datatype",
		"duplicate_key":    "duplicate key",
		"invalid_value":    "value not accepted by schema",
		"invalid_schema":   "schema cannot be compiled",
	},
	"ja": {
		"invalid_type":     "型が不正です",
		"required":         "必須プロパティが不足しています",
		"unknown_key":      "未知のキーです",
		"too_small":        "値が小さすぎます",
		"too_big":          "値が大きすぎます",
		"too_short":        "短すぎます",
		"too_long":         "長すぎます",
		"pattern":          "パターンに一致しません",
		"invalid_enum":     "許可されていない値です",
		"no_match":         "一致するスキーマがありません",
		"forbidden":        "禁止されたスキーマに一致します",
		"wrong_ndim":       "次元数が不正です",
		"invalid_datatype": "データ型が不正です",
		"duplicate_key":    "キーが重複しています",
		"invalid_value":    "スキーマが値を受け付けません",
		"invalid_schema":   "スキーマをコンパイルできません",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		msg = code
	}
	if len(data) == 0 {
		return msg
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, data[k])
	}
	return msg + " (" + strings.Join(parts, ", ") + ")"
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// Current returns the Translator in effect.
func Current() Translator { return currentTranslator }

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
