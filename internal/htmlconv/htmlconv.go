// Package htmlconv turns fetched web pages into compact markdown for prompts.
package htmlconv

import (
	"bytes"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/codefionn/concierge/internal/logger"
	"golang.org/x/net/html"
)

var (
	htmlTagPattern   = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)
	multipleNewlines = regexp.MustCompile(`\n{3,}`)
)

// Number of tags above which text is treated as HTML regardless of structure.
const htmlTagThreshold = 3

var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"meta":     true,
	"link":     true,
	"head":     true,
	"header":   true,
	"footer":   true,
	"nav":      true,
	"aside":    true,
	"iframe":   true,
	"svg":      true,
	"form":     true,
}

// ConvertIfHTML converts input to markdown when it looks like HTML.
// The boolean reports whether a conversion happened.
func ConvertIfHTML(input string) (string, bool) {
	if !IsHTML(input) {
		return input, false
	}
	markdown, err := ToMarkdown(input)
	if err != nil {
		logger.Warn("htmlconv: conversion failed: %v", err)
		return input, false
	}
	return markdown, true
}

// ToMarkdown extracts the main content of an HTML document and renders it as markdown.
// The document title, when present, becomes a level-one heading.
func ToMarkdown(input string) (string, error) {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(findTitle(doc))
	content := pickContentNode(doc)
	pruneNodes(content)

	var buf bytes.Buffer
	if err := html.Render(&buf, content); err != nil {
		return "", err
	}

	markdown, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil {
		return "", err
	}
	markdown = strings.TrimSpace(multipleNewlines.ReplaceAllString(markdown, "\n\n"))

	if title != "" && !strings.Contains(markdown, title) {
		markdown = "# " + title + "\n\n" + markdown
	}
	logger.Debug("htmlconv: %d bytes html -> %d bytes markdown", len(input), len(markdown))
	return markdown, nil
}

// IsHTML detects if the input text is likely HTML
func IsHTML(input string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		return true
	}

	tagCount := len(htmlTagPattern.FindAllString(input, -1))
	if tagCount >= htmlTagThreshold {
		return true
	}
	if tagCount < 2 {
		return false
	}
	for _, marker := range []string{"<body", "<div", "<table", "<ul>", "<ol>", "<h1", "<h2", "<p>"} {
		if strings.Contains(trimmed, marker) {
			return true
		}
	}
	return false
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return n.FirstChild.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// pickContentNode prefers <main>, then <article>, then <body>.
func pickContentNode(doc *html.Node) *html.Node {
	found := map[string]*html.Node{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "main", "article", "body":
				if _, seen := found[n.Data]; !seen {
					found[n.Data] = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, tag := range []string{"main", "article", "body"} {
		if n, ok := found[tag]; ok {
			return n
		}
	}
	return doc
}

func pruneNodes(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.ElementNode && droppedTags[child.Data] {
			n.RemoveChild(child)
		} else {
			pruneNodes(child)
		}
		child = next
	}
}
