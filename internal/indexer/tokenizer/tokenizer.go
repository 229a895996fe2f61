// Package tokenizer turns raw text into Snowball English word stems. Input
// is NFD-normalised, everything that is not a letter or whitespace is
// dropped, the rest is lower-cased and split on whitespace, and each word is
// stemmed. Stop-words are stemmed like any other word.
package tokenizer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// DefaultCacheSize bounds the word-to-stem memo shared by all goroutines.
const DefaultCacheSize = 50_000

// Token is a single stem and its 1-based position in the text it came from.
type Token struct {
	Term     string
	Position int
}

// Stemmer is safe for concurrent use. Its only state is a bounded memo of
// previously stemmed words.
type Stemmer struct {
	cache *lru.Cache[string, string]
}

// NewStemmer creates a Stemmer with a memo of cacheSize words. A
// non-positive size uses DefaultCacheSize.
func NewStemmer(cacheSize int) (*Stemmer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating stem cache: %w", err)
	}
	return &Stemmer{cache: cache}, nil
}

// Stems returns the stems of line in order, duplicates included.
func (s *Stemmer) Stems(line string) []string {
	words := Split(Clean(line))
	stems := make([]string, 0, len(words))
	for _, word := range words {
		stems = append(stems, s.stem(word))
	}
	return stems
}

// UniqueStems returns the distinct stems of line in ascending order.
func (s *Stemmer) UniqueStems(line string) []string {
	stems := s.Stems(line)
	if len(stems) == 0 {
		return stems
	}
	sort.Strings(stems)
	out := stems[:1]
	for _, stem := range stems[1:] {
		if stem != out[len(out)-1] {
			out = append(out, stem)
		}
	}
	return out
}

// Tokenize stems every line of text and numbers the stems from start+1.
// It returns the tokens and the last position used, so callers can stream a
// file line by line and keep positions continuous.
func (s *Stemmer) Tokenize(text string, start int) ([]Token, int) {
	stems := s.Stems(text)
	tokens := make([]Token, 0, len(stems))
	pos := start
	for _, stem := range stems {
		pos++
		tokens = append(tokens, Token{
			Term:     stem,
			Position: pos,
		})
	}
	return tokens, pos
}

func (s *Stemmer) stem(word string) string {
	if stemmed, ok := s.cache.Get(word); ok {
		return stemmed
	}
	stemmed := english.Stem(word, true)
	s.cache.Add(word, stemmed)
	return stemmed
}

// Clean decomposes text, removes every rune that is neither a letter nor
// whitespace (so accents, digits and punctuation vanish), and lower-cases
// the result.
func Clean(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// Split breaks cleaned text into words.
func Split(cleaned string) []string {
	return strings.Fields(cleaned)
}

// CanonicalKey joins already sorted, de-duplicated stems into the key used to
// recognise equivalent queries.
func CanonicalKey(stems []string) string {
	return strings.Join(stems, " ")
}
