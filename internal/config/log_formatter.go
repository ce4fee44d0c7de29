package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	colorRed         = 31
	colorGreen       = 32
	colorYellow      = 33
	colorBlue        = 36
	colorGray        = 37
	colorLightGreen  = 92
	colorLightYellow = 93
	colorCyan        = 96
)

// SjFormatter renders entries as single-line key=value pairs with the
// "object" field first and the remaining fields sorted.
type SjFormatter struct {
	DisableColors bool
}

func (f *SjFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b strings.Builder

	levelColor := colorBlue
	switch entry.Level {
	case log.DebugLevel, log.TraceLevel:
		levelColor = colorGray
	case log.WarnLevel:
		levelColor = colorYellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = colorRed
	}
	f.pair(&b, "level", strings.ToUpper(entry.Level.String())[:4], levelColor)
	f.pair(&b, "ts", entry.Time.Format("2006-01-02 15:04:05.000"), colorLightYellow)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "object" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := entry.Data["object"]; ok {
		keys = append([]string{"object"}, keys...)
	}

	for _, k := range keys {
		val := entry.Data[k]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		m, err := json.Marshal(val)
		if err != nil || len(m) == 0 {
			continue
		}
		s := string(m)
		valueColor := colorCyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = colorGreen
		} else if strings.HasPrefix(s, `"`) {
			valueColor = colorLightYellow
		}
		f.pair(&b, k, s, valueColor)
	}
	f.pair(&b, "msg", strconv.Quote(entry.Message), colorLightGreen)

	out := strings.TrimPrefix(b.String(), " ")
	out = strings.ReplaceAll(out, "\r", `\r`)
	out = strings.ReplaceAll(out, "\n", `\n`)
	return []byte(out + "\n"), nil
}

func (f *SjFormatter) pair(b *strings.Builder, key, value string, valueColor int) {
	if f.DisableColors {
		fmt.Fprintf(b, " %s=%s", key, value)
		return
	}
	fmt.Fprintf(b, " \x1b[%dm%s\x1b[0m=\x1b[%dm%s\x1b[0m", colorCyan, key, valueColor, value)
}
