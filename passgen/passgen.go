// Package passgen generates random passwords and passphrases with
// cryptographically secure randomness. It complements strength checking:
// generated secrets comfortably clear the collaborator's scoring
// thresholds.
package passgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Character classes available to the generator.
const (
	classLower  = "abcdefghijklmnopqrstuvwxyz"
	classUpper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	classDigits = "0123456789"
	classSymbol = "!@#$%^&*()-_=+[]{};:,.<>?"
)

// Policy controls generated password composition.
type Policy struct {
	// Length is the password length in characters. Minimum 8.
	Length int
	// Upper, Digits and Symbols require at least one character of the
	// class. Lowercase letters are always included.
	Upper   bool
	Digits  bool
	Symbols bool
	// Exclude removes specific characters, e.g. visually ambiguous ones.
	Exclude string
}

// DefaultPolicy is 20 characters drawing on all classes.
func DefaultPolicy() Policy {
	return Policy{
		Length:  20,
		Upper:   true,
		Digits:  true,
		Symbols: true,
	}
}

// Generate produces a random password satisfying the policy: every
// required class appears at least once.
func Generate(p Policy) (string, error) {
	if p.Length < 8 {
		return "", fmt.Errorf("password length %d below minimum 8", p.Length)
	}

	classes := [][]rune{filter(classLower, p.Exclude)}
	if p.Upper {
		classes = append(classes, filter(classUpper, p.Exclude))
	}
	if p.Digits {
		classes = append(classes, filter(classDigits, p.Exclude))
	}
	if p.Symbols {
		classes = append(classes, filter(classSymbol, p.Exclude))
	}
	if len(classes) > p.Length {
		return "", fmt.Errorf("length %d cannot cover %d required classes", p.Length, len(classes))
	}

	var pool []rune
	for _, class := range classes {
		if len(class) == 0 {
			return "", fmt.Errorf("a required character class is fully excluded")
		}
		pool = append(pool, class...)
	}

	out := make([]rune, p.Length)
	// One character from each required class first, the rest from the
	// full pool, then shuffle so class positions are not predictable.
	for i, class := range classes {
		r, err := pick(class)
		if err != nil {
			return "", err
		}
		out[i] = r
	}
	for i := len(classes); i < p.Length; i++ {
		r, err := pick(pool)
		if err != nil {
			return "", err
		}
		out[i] = r
	}
	if err := shuffle(out); err != nil {
		return "", err
	}

	return string(out), nil
}

// GeneratePassphrase joins count random words from the word list with
// sep. Minimum 4 words.
func GeneratePassphrase(count int, sep string) (string, error) {
	if count < 4 {
		return "", fmt.Errorf("passphrase word count %d below minimum 4", count)
	}
	words := make([]string, count)
	for i := range words {
		n, err := randInt(len(wordList))
		if err != nil {
			return "", err
		}
		words[i] = wordList[n]
	}
	return strings.Join(words, sep), nil
}

func filter(class, exclude string) []rune {
	var out []rune
	for _, r := range class {
		if !strings.ContainsRune(exclude, r) {
			out = append(out, r)
		}
	}
	return out
}

func pick(pool []rune) (rune, error) {
	n, err := randInt(len(pool))
	if err != nil {
		return 0, err
	}
	return pool[n], nil
}

func shuffle(runes []rune) error {
	for i := len(runes) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return err
		}
		runes[i], runes[j] = runes[j], runes[i]
	}
	return nil
}

func randInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("read randomness: %w", err)
	}
	return int(n.Int64()), nil
}
