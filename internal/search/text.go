package search

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	rpdf "rsc.io/pdf"
)

// normalizeSpace collapses runs of whitespace and trims the string.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HTMLToText converts HTML to plain text, dropping scripts and styles.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return normalizeSpace(html)
	}
	doc.Find("script, style, noscript").Remove()
	return normalizeSpace(doc.Text())
}

// PDFToText extracts the text layer of a PDF. rsc.io/pdf panics on some
// malformed files, so panics are turned into errors.
func PDFToText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}

	return normalizeSpace(builder.String()), nil
}

func isPDF(contentType string, body []byte) bool {
	return strings.Contains(strings.ToLower(contentType), "application/pdf") || bytes.HasPrefix(body, []byte("%PDF-"))
}

func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return strings.ToValidUTF8(text[:maxLen-3], "") + "..."
	}
	return text[:maxLen]
}
