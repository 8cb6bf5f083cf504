package text

import "strings"

// lookalikes maps Cyrillic and Greek letters that render like Latin ones.
var lookalikes = map[rune]rune{
	'а': 'a', 'в': 'b', 'е': 'e', 'ё': 'e', 'к': 'k', 'м': 'm', 'н': 'h', 'о': 'o',
	'р': 'p', 'с': 'c', 'т': 't', 'у': 'y', 'х': 'x', 'і': 'i', 'ј': 'j', 'ѕ': 's',
	'α': 'a', 'β': 'b', 'ε': 'e', 'η': 'n', 'ι': 'i', 'κ': 'k', 'ν': 'v', 'ο': 'o',
	'ρ': 'p', 'τ': 't', 'υ': 'u', 'χ': 'x',
}

// FoldLookalikes lowercases content and replaces look-alike letters with their Latin twins.
func FoldLookalikes(content string) string {
	content = strings.ToLower(content)
	if !HasLookalikes(content) {
		return content
	}
	return strings.Map(func(r rune) rune {
		if l, ok := lookalikes[r]; ok {
			return l
		}
		return r
	}, content)
}

func HasLookalikes(content string) bool {
	for _, r := range content {
		if _, ok := lookalikes[r]; ok {
			return true
		}
	}
	return false
}
