package estimation

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Score is the grade pulled out of a model response. Parsed is false when no
// integer could be found; Value is then meaningless.
type Score struct {
	Value  int
	Parsed bool
}

// Unparsed is the score reported when extraction fails.
var Unparsed = Score{}

func Parsed(v int) Score {
	return Score{Value: v, Parsed: true}
}

// InRange reports whether the score is a parsed value between MinScore and MaxScore.
func (s Score) InRange() bool {
	return s.Parsed && s.Value >= MinScore && s.Value <= MaxScore
}

func (s Score) String() string {
	if !s.Parsed {
		return "unparsed"
	}
	return strconv.Itoa(s.Value)
}

// MarshalJSON encodes an unparsed score as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Parsed {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Unparsed
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Parsed(v)
	return nil
}

const (
	MinScore = 1
	MaxScore = 5
)

const scoreKeyword = "score"

// ExtractScore finds the first "score" (any case) in text and parses the token
// that follows it as an integer. Separators between the keyword and the token
// (":", "=", "**", spaces) are skipped and punctuation around the token is
// stripped. Only the first occurrence is considered, even inside a longer word
// ("underscore 5" reads as 5). Out-of-range values are returned as-is.
func ExtractScore(text string) Score {
	idx := indexFold(text, scoreKeyword)
	if idx < 0 {
		return Unparsed
	}
	rest := skipSeparators(text[idx+len(scoreKeyword):])

	token := rest
	if end := strings.IndexFunc(rest, unicode.IsSpace); end >= 0 {
		token = rest[:end]
	}
	token = trimPunct(token)

	v, err := strconv.Atoi(token)
	if err != nil {
		return Unparsed
	}
	return Parsed(v)
}

// indexFold is an ASCII case-insensitive strings.Index for an ASCII needle.
func indexFold(s, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(s); i++ {
		match := true
		for j := 0; j < n; j++ {
			c := s[i+j]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// skipSeparators drops leading whitespace, punctuation and symbols, but keeps a
// sign that directly precedes a digit.
func skipSeparators(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return s
		}
		if (r == '-' || r == '+') && len(s) > size {
			next, _ := utf8.DecodeRuneInString(s[size:])
			if unicode.IsDigit(next) {
				return s
			}
		}
		s = s[size:]
	}
	return s
}

func trimPunct(token string) string {
	isPunct := func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }

	token = strings.TrimRightFunc(token, isPunct)

	sign := ""
	if strings.HasPrefix(token, "-") || strings.HasPrefix(token, "+") {
		sign, token = token[:1], token[1:]
	}
	token = strings.TrimLeftFunc(token, isPunct)
	return sign + token
}
