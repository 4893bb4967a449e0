package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	listUnsubEntryRe = regexp.MustCompile(`<([^>]+)>`)
	unsubURLRe       = regexp.MustCompile(`(?i)https?://\S*unsubscribe\S*`)
	unsubNearbyRe    = regexp.MustCompile(`(?i)unsubscribe[^\n]{0,200}?(https?://[^\s<>"']+)`)
)

// unsubscribeFromHeader extracts a URL from a List-Unsubscribe header
// value, preferring an http(s) entry over mailto.
func unsubscribeFromHeader(value string) string {
	if value == "" {
		return ""
	}

	var first string
	for _, m := range listUnsubEntryRe.FindAllStringSubmatch(value, -1) {
		entry := strings.TrimSpace(m[1])
		if entry == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(entry), "http") {
			return entry
		}
		if first == "" {
			first = entry
		}
	}

	return first
}

// unsubscribeFromHTML finds the first anchor that mentions unsubscribing
// in its text or target.
func unsubscribeFromHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var url string
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		text := strings.ToLower(sel.Text())
		if strings.Contains(text, "unsubscribe") || strings.Contains(strings.ToLower(href), "unsubscribe") {
			url = href
			return false
		}
		return true
	})

	return url
}

// unsubscribeFromText scans a plain-text body for an unsubscribe link.
func unsubscribeFromText(text string) string {
	if m := unsubURLRe.FindString(text); m != "" {
		return strings.TrimRight(m, ".,;)>\"'")
	}
	if m := unsubNearbyRe.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimRight(m[1], ".,;)>\"'")
	}
	return ""
}
