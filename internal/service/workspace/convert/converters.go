package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrNotText is returned for input that is not valid UTF-8.
	ErrNotText = errors.New("content is not valid UTF-8 text")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// plainText strips a leading BOM and normalizes line endings to \n.
func plainText(input []byte) (string, error) {
	input = bytes.TrimPrefix(input, utf8BOM)
	if !utf8.Valid(input) {
		return "", ErrNotText
	}
	s := strings.ReplaceAll(string(input), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n"), nil
}

type markdownConverter struct{}

// NewMarkdownConverter stores markdown files as-is.
func NewMarkdownConverter() Converter { return markdownConverter{} }

func (markdownConverter) Convert(_ context.Context, input []byte) (string, error) {
	return plainText(input)
}

func (markdownConverter) Extensions() []string { return []string{".md", ".markdown"} }
func (markdownConverter) Name() string         { return "markdown" }

type textConverter struct{}

// NewTextConverter stores plain text files as-is.
func NewTextConverter() Converter { return textConverter{} }

func (textConverter) Convert(_ context.Context, input []byte) (string, error) {
	return plainText(input)
}

func (textConverter) Extensions() []string { return []string{".txt", ".text"} }
func (textConverter) Name() string         { return "plaintext" }

// htmlConverter sanitizes HTML, then rewrites it as markdown.
type htmlConverter struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

// NewHTMLConverter creates an HTML to markdown converter. Scripts, event
// handlers and javascript: URLs are removed before conversion.
func NewHTMLConverter() Converter {
	return &htmlConverter{
		policy:    bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
	}
}

func (c *htmlConverter) Convert(ctx context.Context, input []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := plainText(input)
	if err != nil {
		return "", err
	}

	markdown, err := c.converter.ConvertString(c.policy.Sanitize(text))
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

func (c *htmlConverter) Extensions() []string { return []string{".html", ".htm"} }
func (c *htmlConverter) Name() string         { return "html" }
