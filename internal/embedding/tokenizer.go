package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// BERT special token IDs and the range hashed word IDs are folded into.
const (
	clsTokenID    = 101
	sepTokenID    = 102
	firstWordID   = 1000
	wordIDBuckets = 30000
)

// Tokenizer produces model inputs for BERT-style encoders.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer maps words to hashed vocabulary IDs. It needs no vocabulary
// file, which makes it usable with any exported encoder at reduced quality.
type HashTokenizer struct{}

// Tokenize lays out [CLS] words... [SEP] padded with zeros to maxTokens.
func (t *HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0], attentionMask[0] = clsTokenID, 1
	pos := 1
	for _, word := range SplitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word)%wordIDBuckets) + firstWordID
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos], attentionMask[pos] = sepTokenID, 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords lowercases text and splits it into runs of letters and digits.
// It returns nil when text has no words.
func SplitWords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns the 32-bit FNV-1a hash of s as a non-negative int.
func HashString(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32())
}
