// Package i18n provides message translation for user-facing strings.
//
// Conversation titles and API error messages are localized; log output
// and internal errors stay in English.
package i18n

import (
	"fmt"
	"os"
	"strings"
)

// Supported languages
const (
	LangEN   = "en"
	LangZhTW = "zh-TW"
)

// currentLang holds the current language setting
var currentLang = LangEN

// messages stores all translations
var messages = make(map[string]map[string]string)

// Init initializes the i18n system with the specified language.
func Init(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))

	// Map common variations
	switch lang {
	case "en", "en-us", "english":
		currentLang = LangEN
	case "zh-tw", "zh_tw", "zh-hant", "chinese", "traditional chinese":
		currentLang = LangZhTW
	default:
		if envLang := os.Getenv("FLOATCHAT_LANG"); envLang != "" && !strings.EqualFold(envLang, lang) {
			Init(envLang)
			return
		}
		currentLang = LangEN
	}

	loadMessages()
}

// SetLanguage changes the current language.
func SetLanguage(lang string) {
	Init(lang)
}

// GetLanguage returns the current language.
func GetLanguage() string {
	return currentLang
}

// T returns the translated message for the given key.
// Falls back to English if translation is not found.
func T(key string) string {
	if msg, ok := messages[currentLang][key]; ok {
		return msg
	}

	if msg, ok := messages[LangEN][key]; ok {
		return msg
	}

	// Return key if no translation found
	return key
}

// Sprintf returns the translated and formatted message.
func Sprintf(key string, args ...any) string {
	return fmt.Sprintf(T(key), args...)
}

// loadMessages initializes the message maps
func loadMessages() {
	messages[LangEN] = make(map[string]string)
	messages[LangZhTW] = make(map[string]string)

	loadEnglishMessages()
	loadChineseMessages()
}

// GetSupportedLanguages returns a list of supported language codes.
func GetSupportedLanguages() []string {
	return []string{LangEN, LangZhTW}
}

// IsLanguageSupported checks if a language is supported.
func IsLanguageSupported(lang string) bool {
	lang = strings.TrimSpace(lang)
	for _, supported := range GetSupportedLanguages() {
		if strings.EqualFold(lang, supported) {
			return true
		}
	}
	return false
}

func init() {
	if envLang := os.Getenv("FLOATCHAT_LANG"); envLang != "" {
		Init(envLang)
	} else {
		Init(LangEN)
	}
}
