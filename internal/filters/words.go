package filters

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/utils/text"
)

var DefaultAbusiveWords = []string{
	"gali", "gandu", "bsdk", "madarchod", "behenchod", "kutte", "harami", "fuck", "shit",
	"asshole", "bitch", "cunt", "chutiya", "randi", "tera baap", "teri maa ka", "lodu",
	"bhadwa", "chutiye", "haraami", "kamine", "lavde", "saala", "saali", "चूतिया", "मादरचोद", "बहनचोद",
}

var DefaultPornographicWords = []string{
	"sex", "porn", "nude", "boobs", "pussy", "dick", "c**k", "vagina", "ass", "naked",
	"erotic", "xxx", "fuck", "cum", "masturbate", "gangbang", "hentai", "s*x", "n**d",
	"नंगा", "अश्लील", "चोद", "लंड", "गांड",
}

// wordChar is a letter, combining mark, digit or underscore; marks keep Devanagari words whole.
const wordChar = `\p{L}\p{M}\p{N}_`

type compiled struct {
	words []string
	re    *regexp.Regexp
}

// WordList matches whole words or phrases case-insensitively. Safe for concurrent use.
type WordList struct {
	state atomic.Pointer[compiled]
}

func NewWordList(words []string) *WordList {
	l := &WordList{}
	l.Set(words)
	return l
}

// Set replaces the list atomically.
func (l *WordList) Set(words []string) {
	words = db.NormalizeKeywords(words)
	c := &compiled{words: words}
	if len(words) > 0 {
		alts := make([]string, len(words))
		for i, w := range words {
			alts[i] = regexp.QuoteMeta(w)
		}
		sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
		c.re = regexp.MustCompile(`(?i)(?:^|[^` + wordChar + `])(?:` + strings.Join(alts, "|") + `)(?:$|[^` + wordChar + `])`)
	}
	l.state.Store(c)
}

func (l *WordList) Words() []string {
	c := l.state.Load()
	if c == nil {
		return nil
	}
	return append([]string(nil), c.words...)
}

func (l *WordList) Len() int {
	c := l.state.Load()
	if c == nil {
		return 0
	}
	return len(c.words)
}

// Match checks the text as is and with look-alike letters folded to Latin.
func (l *WordList) Match(content string) bool {
	c := l.state.Load()
	if c == nil || c.re == nil || content == "" {
		return false
	}
	lower := strings.ToLower(content)
	if c.re.MatchString(lower) {
		return true
	}
	if folded := text.FoldLookalikes(content); folded != lower {
		return c.re.MatchString(folded)
	}
	return false
}
