// Package frontmatter splits a proposal document into its delimited YAML
// metadata block and body, and puts the two back together after edits.
package frontmatter

import (
	"fmt"
	"strings"

	"github.com/starford/agx/internal/apperr"
)

// Delimiter opens and closes the metadata block, each on its own line.
const Delimiter = "---"

// Extract separates the metadata block (between the leading "---" lines) from
// the body. The text must start with the delimiter line; the closing
// delimiter is the next line consisting of exactly "---", followed by a
// newline or end of input. CRLF line endings are normalised to LF.
func Extract(raw string) (block, body string, err error) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(text, Delimiter+"\n") {
		return "", "", fmt.Errorf("%w: document does not start with frontmatter marker `%s`",
			apperr.ErrMalformedDocument, Delimiter)
	}

	rest := text[len(Delimiter)+1:]
	offset := 0
	for {
		end := strings.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		if end >= 0 {
			line = rest[offset : offset+end]
		}
		if line == Delimiter {
			if end >= 0 {
				body = rest[offset+end+1:]
			}
			return rest[:offset], body, nil
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}

	return "", "", fmt.Errorf("%w: missing closing frontmatter marker `%s`",
		apperr.ErrMalformedDocument, Delimiter)
}

// Assemble joins a metadata block and a body with the delimiter pair and one
// blank line. Leading blank lines of body are dropped and the result always
// ends with exactly one newline.
func Assemble(block, body string) string {
	var b strings.Builder
	b.WriteString(Delimiter)
	b.WriteByte('\n')
	b.WriteString(block)
	if block != "" && !strings.HasSuffix(block, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(Delimiter)
	b.WriteByte('\n')

	body = strings.TrimRight(strings.TrimLeft(body, "\n"), "\n")
	if body != "" {
		b.WriteByte('\n')
		b.WriteString(body)
		b.WriteByte('\n')
	}
	return b.String()
}

// Read extracts and parses a document in one step.
func Read(raw string) (*Metadata, string, error) {
	block, body, err := Extract(raw)
	if err != nil {
		return nil, "", err
	}
	meta, err := Parse(block)
	if err != nil {
		return nil, "", err
	}
	return meta, body, nil
}

// Write serializes meta and assembles it with body.
func Write(meta *Metadata, body string) (string, error) {
	block, err := Serialize(meta)
	if err != nil {
		return "", err
	}
	return Assemble(block, body), nil
}
