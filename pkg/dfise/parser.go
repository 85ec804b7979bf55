package dfise

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Header is the decoded metadata block of a DF-ISE file.
type Header struct {
	Version    string
	Type       string
	Datasets   []string
	Functions  []string
	Attributes map[string]string // remaining scalar assignments
}

// HeaderParser parses DF-ISE Info blocks.
type HeaderParser struct {
	parser *participle.Parser[InfoBody]
}

// NewHeaderParser creates a new header parser instance
func NewHeaderParser() (*HeaderParser, error) {
	parser, err := participle.Build[InfoBody](
		participle.Lexer(HeaderLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &HeaderParser{parser: parser}, nil
}

// ParseString locates the Info block of a document and decodes it.
func (p *HeaderParser) ParseString(input string) (*Header, error) {
	body, err := InfoSection(input)
	if err != nil {
		return nil, err
	}
	info, err := p.parser.ParseString("", body)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return newHeader(info), nil
}

// Parse reads a whole document from r and decodes its Info block.
func (p *HeaderParser) Parse(r io.Reader) (*Header, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return p.ParseString(string(data))
}

// ParseFile decodes the Info block of the file at filename.
func (p *HeaderParser) ParseFile(filename string) (*Header, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// ParseHeader is a one-shot helper around NewHeaderParser.
func ParseHeader(text string) (*Header, error) {
	p, err := NewHeaderParser()
	if err != nil {
		return nil, err
	}
	return p.ParseString(text)
}

func newHeader(body *InfoBody) *Header {
	h := &Header{Attributes: make(map[string]string)}
	for _, a := range body.Assignments {
		switch a.Key {
		case "version":
			if h.Version == "" {
				h.Version = a.Value.Text()
			}
		case "type":
			if h.Type == "" {
				h.Type = a.Value.Text()
			}
		case "datasets":
			if h.Datasets == nil && a.Value.List != nil {
				h.Datasets = a.Value.List.Strings()
			}
		case "functions":
			if h.Functions == nil && a.Value.List != nil {
				h.Functions = a.Value.List.Strings()
			}
		default:
			if _, ok := h.Attributes[a.Key]; !ok {
				h.Attributes[a.Key] = a.Value.Text()
			}
		}
	}
	return h
}
