package i18n

import (
	"sort"
	"strings"
)

var languageNames = map[string]string{
	"en": "English",
	"ru": "Russian",
}

func GetLanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

func GetLanguagesList() []string {
	res := make([]string, 0, len(languageNames))
	for code := range languageNames {
		res = append(res, code)
	}
	sort.Strings(res)
	return res
}
