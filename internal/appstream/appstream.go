// Package appstream derives AppStream XML fragments from plain text sources.
package appstream

import (
	"bufio"
	"encoding/xml"
	"strings"
)

// Description converts plain text into AppStream description markup.
// Blank lines separate paragraphs and lines starting with "*" or "-" form a
// bullet list.
func Description(text string) string {
	var b strings.Builder
	var para []string
	inList := false

	flushPara := func() {
		if len(para) > 0 {
			b.WriteString("<p>" + escape(strings.Join(para, " ")) + "</p>\n")
			para = nil
		}
	}
	closeList := func() {
		if inList {
			b.WriteString("</ul>\n")
			inList = false
		}
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			flushPara()
			closeList()
		case isBullet(line):
			flushPara()
			if !inList {
				b.WriteString("<ul>\n")
				inList = true
			}
			b.WriteString("<li>" + escape(strings.TrimSpace(line[1:])) + "</li>\n")
		default:
			closeList()
			para = append(para, line)
		}
	}
	flushPara()
	closeList()
	return strings.TrimSuffix(b.String(), "\n")
}

// Release is one entry of a changelog.
type Release struct {
	Version string
	Date    string
	Items   []string
}

// ParseChangelog reads releases from changelog text. A release header is a
// line "+ version;date"; following "-" lines are its items. Anything else is
// ignored.
func ParseChangelog(text string) []Release {
	var releases []Release
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "+"):
			version, date, _ := strings.Cut(strings.TrimSpace(line[1:]), ";")
			releases = append(releases, Release{
				Version: strings.TrimSpace(version),
				Date:    strings.TrimSpace(date),
			})
		case strings.HasPrefix(line, "-") && len(releases) > 0:
			r := &releases[len(releases)-1]
			r.Items = append(r.Items, strings.TrimSpace(line[1:]))
		}
	}
	return releases
}

// Changelog converts changelog text into AppStream release markup.
func Changelog(text string) string {
	var b strings.Builder
	for _, r := range ParseChangelog(text) {
		b.WriteString(`<release version="` + escape(r.Version) + `"`)
		if r.Date != "" {
			b.WriteString(` date="` + escape(r.Date) + `"`)
		}
		b.WriteString(">\n")
		if len(r.Items) > 0 {
			b.WriteString("<description>\n<ul>\n")
			for _, item := range r.Items {
				b.WriteString("<li>" + escape(item) + "</li>\n")
			}
			b.WriteString("</ul>\n</description>\n")
		}
		b.WriteString("</release>\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func isBullet(line string) bool {
	return len(line) > 1 && (line[0] == '*' || line[0] == '-') && line[1] == ' '
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
