package i18n

import (
	"path"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/swearjar/resources"
)

const (
	defaultLanguage = "en"
	resourcesPath   = "i18n"
)

// Single-goroutine access, like the rest of the moderation state.
var state = struct {
	translations map[string]map[string]string
	loaded       map[string]bool
}{
	translations: make(map[string]map[string]string),
	loaded:       make(map[string]bool),
}

func load(lang string) {
	state.loaded[lang] = true
	raw, err := resources.FS.ReadFile(path.Join(resourcesPath, lang+".yml"))
	if err != nil {
		log.WithError(err).WithField("lang", lang).Errorln("cant load i18n")
		return
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(raw, &translations); err != nil {
		log.WithError(err).WithField("lang", lang).Errorln("cant unmarshal i18n")
		return
	}
	state.translations[lang] = translations
}

// Get returns the translation of key, or key itself for English and for
// keys the language does not define.
func Get(key, lang string) string {
	if lang == defaultLanguage || lang == "" {
		return key
	}
	if !state.loaded[lang] {
		load(lang)
	}
	if res, ok := state.translations[lang][key]; ok {
		return res
	}
	log.Tracef(`no translation for key "%s"`, key)
	return key
}
