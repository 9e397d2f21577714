// Package exercise checks fill-in-the-blank answers against a reference
// solution.
//
// Validation is a pure function of the submitted code and the solution. It
// first rejects any submission that still contains {{placeholder}} tokens,
// then compares the two texts line by line after trimming surrounding
// whitespace. Only lines that exist and are non-empty in the solution are
// checked; extra trailing lines in the submission are not penalised.
package exercise

import (
	"fmt"
	"strings"
)

// LineError points at a single line of the submission.
type LineError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Verdict is the outcome of validating a submission.
type Verdict struct {
	Correct bool        `json:"is_correct"`
	Message string      `json:"message"`
	Errors  []LineError `json:"errors,omitempty"`
}

const (
	// SuccessMessage is returned when every required line matches.
	SuccessMessage = "Congratulations! You filled in every blank correctly."
	// MasteredMessage is attached by the runner when a correct exercise also ran.
	MasteredMessage = "Great job! You have mastered this topic."
)

// Enabled reports whether a solution is usable for validation. An empty or
// whitespace-only solution turns the exercise into a free-form editor.
func Enabled(solution string) bool {
	return strings.TrimSpace(solution) != ""
}

// Validate compares userCode with solutionCode.
//
// When userCode still contains placeholders the verdict lists each distinct
// placeholder together with the first line that holds it, and no line
// comparison is done. Otherwise every solution line that is non-empty after
// trimming must equal the trimmed user line at the same index.
func Validate(userCode, solutionCode string) Verdict {
	if strings.Contains(userCode, "{{") {
		if tokens := PlaceholderTokens(userCode); len(tokens) > 0 {
			return unresolved(userCode, tokens)
		}
	}

	userLines := strings.Split(userCode, "\n")
	solutionLines := strings.Split(solutionCode, "\n")

	n := max(len(userLines), len(solutionLines))
	var errs []LineError
	for i := 0; i < n; i++ {
		u := trimmedLine(userLines, i)
		s := trimmedLine(solutionLines, i)
		if u != s && s != "" {
			errs = append(errs, LineError{
				Line:    i + 1,
				Message: fmt.Sprintf("expected: \"%s\"", s),
			})
		}
	}

	if len(errs) == 0 {
		return Verdict{Correct: true, Message: SuccessMessage}
	}
	return Verdict{
		Correct: false,
		Message: errorCountMessage(len(errs)),
		Errors:  errs,
	}
}

func unresolved(userCode string, tokens []string) Verdict {
	lines := strings.Split(userCode, "\n")
	errs := make([]LineError, 0, len(tokens))
	for _, tok := range tokens {
		errs = append(errs, LineError{
			Line:    firstLineContaining(lines, tok),
			Message: fmt.Sprintf("please fill in %s", tok),
		})
	}
	return Verdict{
		Correct: false,
		Message: "unfinished blanks remain: " + strings.Join(tokens, ", "),
		Errors:  errs,
	}
}

// firstLineContaining returns the 1-indexed line holding tok, or 0 if none does.
func firstLineContaining(lines []string, tok string) int {
	for i, line := range lines {
		if strings.Contains(line, tok) {
			return i + 1
		}
	}
	return 0
}

func trimmedLine(lines []string, i int) string {
	if i >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[i])
}

func errorCountMessage(n int) string {
	if n == 1 {
		return "found 1 error"
	}
	return fmt.Sprintf("found %d errors", n)
}
