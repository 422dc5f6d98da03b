// Package mastermind implements the code/guess feedback rules, a direct
// port of the original project's Mastermind.check_guess (models.py):
// a two-pass exact-then-misplaced count with consumption marking.
package mastermind

import "fmt"

// DefaultColors is the 6-color alphabet used when a match does not specify
// its own, matching the original project's default.
var DefaultColors = []string{"red", "green", "blue", "yellow", "purple", "orange"}

// DefaultCodeLength and DefaultMaxAttempts mirror the original project's
// Mastermind.__init__ defaults.
const (
	DefaultCodeLength = 4
	DefaultMaxAttempts = 10
)

// Code is an ordered sequence of colors.
type Code []string

// Feedback is the result of comparing a guess against a code.
type Feedback struct {
	Exact     int // right color, right position
	Misplaced int // right color, wrong position
}

// Solved reports whether feedback represents a fully-solved code of the
// given length.
func (f Feedback) Solved(codeLength int) bool {
	return f.Exact == codeLength
}

// Check compares guess against code and returns the (exact, misplaced)
// feedback. Both sequences must have equal length.
func Check(code, guess Code) (Feedback, error) {
	if len(code) != len(guess) {
		return Feedback{}, fmt.Errorf("mastermind: code and guess must have equal length (%d != %d)", len(code), len(guess))
	}

	codeCopy := make(Code, len(code))
	copy(codeCopy, code)
	guessCopy := make(Code, len(guess))
	copy(guessCopy, guess)

	var exact int
	for i := range codeCopy {
		if codeCopy[i] == guessCopy[i] {
			exact++
			codeCopy[i] = ""
			guessCopy[i] = ""
		}
	}

	var misplaced int
	for i := range guessCopy {
		if guessCopy[i] == "" {
			continue
		}
		for j := range codeCopy {
			if codeCopy[j] != "" && codeCopy[j] == guessCopy[i] {
				misplaced++
				codeCopy[j] = ""
				break
			}
		}
	}

	return Feedback{Exact: exact, Misplaced: misplaced}, nil
}

// ValidateCode reports whether code has the expected length and every
// element is drawn from colors.
func ValidateCode(code Code, codeLength int, colors []string) error {
	if len(code) != codeLength {
		return fmt.Errorf("mastermind: code length %d, want %d", len(code), codeLength)
	}
	allowed := make(map[string]struct{}, len(colors))
	for _, c := range colors {
		allowed[c] = struct{}{}
	}
	for _, c := range code {
		if _, ok := allowed[c]; !ok {
			return fmt.Errorf("mastermind: color %q not in alphabet", c)
		}
	}
	return nil
}
