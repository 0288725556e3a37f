package sanitizer

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reTags        = regexp.MustCompile(`(?s)<[^>]*>`)
	reScriptBlock = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	reManyBlank   = regexp.MustCompile(`\n{3,}`)
)

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func stripMarkup(s string) string {
	s = reScriptBlock.ReplaceAllString(s, "")
	return reTags.ReplaceAllString(s, "")
}

func collapseLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = TrimAndNormalize(line)
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(reManyBlank.ReplaceAllString(s, "\n\n"))
}

// SanitizeText cleans multi-line free text (messages, reviews, descriptions).
// Line breaks survive; runs of spaces inside a line collapse to one.
func SanitizeText(input string) string {
	p := Pipeline{
		stripControl,
		stripMarkup,
		collapseLines,
	}
	return p.Apply(input)
}

// SanitizeLine cleans single-line text such as titles and names.
func SanitizeLine(input string) string {
	p := Pipeline{
		stripControl,
		stripMarkup,
		TrimAndNormalize,
	}
	return p.Apply(input)
}

// SanitizeURL forces https, lowercases the host and drops utm_* parameters.
// Returns "" when the input is not a usable URL.
func SanitizeURL(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	if after, ok := strings.CutPrefix(s, "http://"); ok {
		s = "https://" + after
	} else if !strings.HasPrefix(strings.ToLower(s), "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)

	q := u.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
