package runtime

import (
	"bufio"
	"bytes"
	"dispatch-lab/errors"
	"embed"
	"io/fs"
	"path"
	"strings"
)

// CensoredFolder ships the default dictionaries, one file per language.
//
//go:embed censored/*.txt
var CensoredFolder embed.FS

// CensoredData carries the result of the loading process including metadata for logging.
type CensoredData struct {
	Words     []string
	Languages []string
}

// CensoredLoader reads blacklisted words from a filesystem.
type CensoredLoader struct {
	fs fs.FS
}

func NewCensoredLoader(f fs.FS) *CensoredLoader {
	return &CensoredLoader{fs: f}
}

// LoadAll reads every .txt file of dir as a language dictionary
// ("fr.txt" is "fr") and returns the union of their words.
func (l *CensoredLoader) LoadAll(dir string) (*CensoredData, error) {
	entries, err := fs.ReadDir(l.fs, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	var words []string
	seen := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(l.fs, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		// Scanner copes with \n as well as \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if _, ok := seen[line]; ok {
				continue
			}
			seen[line] = struct{}{}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return &CensoredData{Words: words, Languages: languages}, nil
}
