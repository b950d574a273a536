package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"chattr/errors"
)

//go:embed words/*
var wordsFolder embed.FS

// WordData carries the result of the loading process including metadata for logging.
type WordData struct {
	Words     []string
	Languages []string
}

// LoadWords parses the embedded blacklists. Each .txt file is a language
// dictionary (e.g., "fr.txt" -> "fr"), one word per line.
func LoadWords() (*WordData, error) {
	return loadWords(wordsFolder)
}

func loadWords(folder fs.FS) (*WordData, error) {
	entries, err := fs.ReadDir(folder, "words")
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		// The folder must stay flat, one dictionary file per language
		if entry.IsDir() {
			return nil, errors.ErrOnlyWordFiles
		}

		lang := strings.TrimSuffix(entry.Name(), ".txt")
		languages = append(languages, lang)

		data, err := fs.ReadFile(folder, "words/"+entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles different line endings (\n vs \r\n) correctly
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}

		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}

	return &WordData{
		Words:     words,
		Languages: languages,
	}, nil
}
