// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package markdown parses the markdown subset produced by language
// models into blocks, independent of any rendering target.
//
// Grammar, applied line by line:
//
//	heading    = 1*6"#" SP text | "**" text "**" [":"]
//	list item  = ("-" | "*" | "+" | "•") SP text | 1*DIGIT ("." | ")") SP text
//	code fence = "```" [lang] ... "```"
//	blank line ends the current paragraph
//	any other line continues the current paragraph
//
// Inline spans inside text: "**bold**", "__underline__", "*italic*"
// and "_italic_". Markers do not nest.
package markdown

import (
	"regexp"
	"strings"
)

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
	BlockCode
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockListItem:
		return "list_item"
	case BlockCode:
		return "code"
	default:
		return "paragraph"
	}
}

// Block is a single structural element of a document. Level is the
// number of '#' for headings and 0 for bold-line headings.
type Block struct {
	Kind    BlockKind
	Level   int
	Ordered bool
	Text    string
}

// Spans parses the inline formatting of the block text.
func (b Block) Spans() []Span {
	if b.Kind == BlockCode {
		return []Span{{Text: b.Text}}
	}
	return ParseInline(b.Text)
}

// Plain returns the block text with inline markers removed.
func (b Block) Plain() string {
	if b.Kind == BlockCode {
		return b.Text
	}
	return StripInline(b.Text)
}

var (
	atxHeading  = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	boldHeading = regexp.MustCompile(`^\*\*([^*]+?)\*\*\s*:?\s*$`)
	bulletItem  = regexp.MustCompile(`^[-*+•]\s+(.*)$`)
	orderedItem = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
)

// Parse splits text into blocks. It never fails; text without any
// structure yields paragraphs only.
func Parse(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var (
		blocks []Block
		para   []string
		code   []string
		inCode bool
	)

	flush := func() {
		if len(para) > 0 {
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: strings.Join(para, "\n")})
			para = nil
		}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "```") {
			if inCode {
				blocks = append(blocks, Block{Kind: BlockCode, Text: strings.Join(code, "\n")})
				code = nil
				inCode = false
			} else {
				flush()
				inCode = true
			}
			continue
		}
		if inCode {
			code = append(code, raw)
			continue
		}

		switch {
		case line == "":
			flush()
		case atxHeading.MatchString(line):
			flush()
			m := atxHeading.FindStringSubmatch(line)
			blocks = append(blocks, Block{Kind: BlockHeading, Level: len(m[1]), Text: m[2]})
		case boldHeading.MatchString(line):
			flush()
			m := boldHeading.FindStringSubmatch(line)
			blocks = append(blocks, Block{Kind: BlockHeading, Text: strings.TrimSpace(m[1])})
		case bulletItem.MatchString(line):
			flush()
			m := bulletItem.FindStringSubmatch(line)
			blocks = append(blocks, Block{Kind: BlockListItem, Text: m[1]})
		case orderedItem.MatchString(line):
			flush()
			m := orderedItem.FindStringSubmatch(line)
			blocks = append(blocks, Block{Kind: BlockListItem, Ordered: true, Text: m[1]})
		default:
			para = append(para, line)
		}
	}

	// unterminated fence keeps its content
	if inCode && len(code) > 0 {
		blocks = append(blocks, Block{Kind: BlockCode, Text: strings.Join(code, "\n")})
	}
	flush()

	return blocks
}
