package filters

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultSpamMaxLength = 1000

	maxPunctuation       = 15
	repeatedWordRatio    = 0.4
	repeatedWordMinWords = 5
	uniqueCharRatio      = 0.3
	uniqueCharMinLength  = 50
	uniqueCharMaxWords   = 3
)

var (
	linkPattern     = regexp.MustCompile(`(?i)(?:https?://\S+|\bwww\.\S+|\b(?:t|telegram)\.me/\S+)`)
	usernamePattern = regexp.MustCompile(`@(\w{5,})`)
)

func ContainsLinks(content string) bool {
	return content != "" && linkPattern.MatchString(content)
}

// ContainsUsernames finds @mentions of five or more word characters, ignoring the excluded handles.
func ContainsUsernames(content string, exclude ...string) bool {
	if content == "" {
		return false
	}
	for _, m := range usernamePattern.FindAllStringSubmatch(content, -1) {
		excluded := false
		for _, e := range exclude {
			if e != "" && strings.EqualFold(strings.TrimPrefix(e, "@"), m[1]) {
				excluded = true
				break
			}
		}
		if !excluded {
			return true
		}
	}
	return false
}

type SpamPolicy struct {
	MaxLength int
}

func (p SpamPolicy) IsSpam(content string) bool {
	if content == "" {
		return false
	}
	maxLength := p.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultSpamMaxLength
	}
	length := utf8.RuneCountInString(content)
	if length > maxLength {
		return true
	}
	if strings.Count(content, "!") > maxPunctuation || strings.Count(content, "?") > maxPunctuation {
		return true
	}

	words := strings.Fields(strings.ToLower(content))
	counts := make(map[string]int, len(words))
	top := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > top {
			top = counts[w]
		}
	}
	if len(words) >= repeatedWordMinWords && float64(top)/float64(len(words)) > repeatedWordRatio {
		return true
	}

	// Character repetition only counts for texts of a few distinct words; prose always
	// has a low unique-rune ratio once it is long enough.
	if length > uniqueCharMinLength && len(counts) <= uniqueCharMaxWords {
		unique := make(map[rune]struct{}, 64)
		for _, r := range content {
			unique[r] = struct{}{}
		}
		if float64(len(unique))/float64(length) < uniqueCharRatio {
			return true
		}
	}
	return false
}
