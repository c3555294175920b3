// Package textproc turns raw text into stemmed words. Text is NFD-normalised
// so accents split off as combining marks, everything that is not a letter
// or whitespace is dropped, and the rest is lower-cased, split on whitespace
// and run through the Snowball English stemmer.
package textproc

import (
	"slices"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// Clean normalises text and keeps only lower-cased letters and whitespace.
func Clean(text string) string {
	normalized := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse cleans text and splits it into words.
func Parse(text string) []string {
	return strings.Fields(Clean(text))
}

// Stem returns the Snowball English stem of a single cleaned word.
func Stem(word string) string {
	return english.Stem(word, true)
}

// Stems parses text and stems every word, keeping order and duplicates.
func Stems(text string) []string {
	words := Parse(text)
	stems := make([]string, 0, len(words))
	for _, w := range words {
		if s := Stem(w); s != "" {
			stems = append(stems, s)
		}
	}
	return stems
}

// UniqueStems returns the distinct stems of text in ascending order.
func UniqueStems(text string) []string {
	stems := Stems(text)
	slices.Sort(stems)
	return slices.Compact(stems)
}
