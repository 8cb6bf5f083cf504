package i18n

import "strings"

var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
}

// Supported reports whether translations for code are shipped.
func Supported(code string) bool {
	_, ok := languageNames[strings.ToLower(code)]
	return ok
}
