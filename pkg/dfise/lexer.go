package dfise

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// HeaderLexer tokenizes the body of a DF-ISE Info block.
var HeaderLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// String literals, e.g. "drain eCurrent"
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},

	// Numbers: 1.0, -3, 2.5e-07
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},

	// Identifiers, e.g. xyplot, InnerVoltage
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},

	{Name: "Assign", Pattern: `=`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Semicolon", Pattern: `;`},
})
