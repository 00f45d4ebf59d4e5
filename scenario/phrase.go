package scenario

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PhraseWords in a recovery key phrase
const PhraseWords = 12

var (
	// ErrPhraseLength the recovery phrase did not have PhraseWords words
	ErrPhraseLength = errors.New("recovery key phrase should be 12 words")
	// ErrNoWordNumbers the verification instructions named no words
	ErrNoWordNumbers = errors.New("no word numbers found in instructions")

	wordNumberRe = regexp.MustCompile(`#([0-9]+)`)
)

// ParsePhrase splits a recovery key phrase into its words
func ParsePhrase(text string) ([]string, error) {
	words := strings.Fields(text)
	if len(words) != PhraseWords {
		return nil, errors.Wrapf(ErrPhraseLength, "got %d", len(words))
	}
	return words, nil
}

// SelectWords resolves the 1-based "#N" references in instructions to words
// from phrase, in the order they appear
func SelectWords(instructions string, phrase []string) ([]string, error) {
	matches := wordNumberRe.FindAllStringSubmatch(instructions, -1)
	if len(matches) == 0 {
		return nil, errors.Wrapf(ErrNoWordNumbers, "%q", instructions)
	}
	selected := make([]string, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, errors.Wrapf(err, "parsing word number %s", m[1])
		}
		if n < 1 || n > len(phrase) {
			return nil, errors.Errorf("word number %d out of range for %d word phrase", n, len(phrase))
		}
		selected = append(selected, phrase[n-1])
	}
	return selected, nil
}
