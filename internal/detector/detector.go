package detector

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/swearjar/internal/utils/text"
	"github.com/iamwavecut/swearjar/resources"
)

const defaultWordsPath = "words/default.txt"

// Detector holds the set of flagged words. It is owned by a single
// goroutine and performs no locking.
type Detector struct {
	words map[string]struct{}
}

func New(words ...string) *Detector {
	d := &Detector{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		d.AddWord(w)
	}
	return d
}

// Detect returns every token present in the word set, keeping message
// order and repeats.
func (d *Detector) Detect(tokens []string) []string {
	var found []string
	for _, token := range tokens {
		if _, ok := d.words[text.Normalize(token)]; ok {
			found = append(found, token)
		}
	}
	return found
}

func (d *Detector) AddWord(word string) {
	word = text.Normalize(word)
	if word == "" {
		return
	}
	d.words[word] = struct{}{}
}

// RemoveWord reports whether the word was in the set before removal.
func (d *Detector) RemoveWord(word string) bool {
	word = text.Normalize(word)
	if _, ok := d.words[word]; !ok {
		return false
	}
	delete(d.words, word)
	return true
}

func (d *Detector) Contains(word string) bool {
	_, ok := d.words[text.Normalize(word)]
	return ok
}

func (d *Detector) Len() int {
	return len(d.words)
}

func (d *Detector) Words() []string {
	res := make([]string, 0, len(d.words))
	for w := range d.words {
		res = append(res, w)
	}
	sort.Strings(res)
	return res
}

// LoadWords reads one word per line. Blank lines and lines starting with
// "#" are skipped. It returns the number of lines accepted.
func (d *Detector) LoadWords(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.AddWord(line)
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrap(err, "cant read word list")
	}
	return n, nil
}

func (d *Detector) LoadWordsFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "cant open word list")
	}
	defer f.Close()

	n, err := d.LoadWords(f)
	if err != nil {
		return n, err
	}
	log.WithFields(log.Fields{"object": "Detector", "path": path, "words": n}).Info("loaded word list")
	return n, nil
}

// LoadDefaults reads the word list bundled with the binary.
func (d *Detector) LoadDefaults() (int, error) {
	f, err := resources.FS.Open(defaultWordsPath)
	if err != nil {
		return 0, errors.Wrap(err, "cant open bundled word list")
	}
	defer f.Close()
	return d.LoadWords(f)
}
