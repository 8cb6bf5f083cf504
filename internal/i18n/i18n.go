package i18n

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/grouppolice/resources"
)

const translationsFile = "i18n/translations.yml"

var state = struct {
	once            sync.Once
	mu              sync.RWMutex
	translations    map[string]map[string]string
	defaultLanguage string
}{
	defaultLanguage: "en",
}

// SetDefaultLanguage is used for lookups with an empty language.
func SetDefaultLanguage(lang string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if lang = strings.TrimSpace(lang); lang != "" {
		state.defaultLanguage = lang
	}
}

func DefaultLanguage() string {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.defaultLanguage
}

func load() {
	content, err := resources.FS.ReadFile(translationsFile)
	if err != nil {
		log.WithField("error", err.Error()).Errorln("cant load i18n")
		return
	}
	dict := make(map[string]map[string]string)
	if err := yaml.Unmarshal(content, &dict); err != nil {
		log.WithField("error", err.Error()).Errorln("cant unmarshal i18n")
		return
	}
	state.mu.Lock()
	state.translations = dict
	state.mu.Unlock()
}

// Get translates an English key; unknown keys and English fall back to the key itself.
func Get(key, lang string) string {
	if lang == "" {
		lang = DefaultLanguage()
	}
	if strings.EqualFold(lang, "en") {
		return key
	}
	state.once.Do(load)

	state.mu.RLock()
	defer state.mu.RUnlock()
	if res, ok := state.translations[key][strings.ToUpper(lang)]; ok && res != "" {
		return res
	}
	log.Tracef(`no translation for key "%s"`, key)
	return key
}
