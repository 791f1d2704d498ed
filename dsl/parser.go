package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:ms|s|m|px|%)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][,;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node for a meme job file.
//
//	meme Drake v1 {
//	  template { id: "181913649"  source: "https://i.imgflip.com/30b1gx.jpg"  boxes: 2 }
//	  output { format: jpeg  quality: 90 }
//	  caption "Top ${user.name}"
//	  caption "Bottom"
//	}
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'meme' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`
}

// Section is a top-level statement (template/output/caption).
type Section struct {
	Template *TemplateSection `parser:"  @@"`
	Output   *OutputSection   `parser:"| @@"`
	Caption  *CaptionLine     `parser:"| @@"`
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Template != nil:
		return "template"
	case s.Output != nil:
		return "output"
	case s.Caption != nil:
		return "caption"
	default:
		return "unknown"
	}
}

// TemplateSection describes the source image and its caption slots.
type TemplateSection struct {
	Block *Block `parser:"'template' @@"`
}

// OutputSection describes encoding and rendering options.
type OutputSection struct {
	Block *Block `parser:"'output' @@"`
}

// CaptionLine is one caption, in slot order.
type CaptionLine struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Text StringLiteral  `parser:"'caption' @String"`
}

// Block is a delimited list of assignments.
type Block struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ ( ';' | ',' | Newline )* )* '}'"`
}

// Lookup returns the last assignment for key.
func (b *Block) Lookup(key string) (*Assignment, bool) {
	if b == nil {
		return nil, false
	}
	for i := len(b.Entries) - 1; i >= 0; i-- {
		if b.Entries[i].Key == key {
			return b.Entries[i], true
		}
	}
	return nil, false
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' Newline* @@"`
}

// Value represents property values.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Ident  *string        `parser:"| @Ident"`
	Array  *ArrayValue    `parser:"| @@"`
}

// Text 返回标量值的文本形式；数组返回空串。
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		return *v.Ident
	default:
		return ""
	}
}

// Int 解析整数值（不允许单位）。
func (v *Value) Int() (int, error) {
	if v == nil || v.Number == nil {
		return 0, fmt.Errorf("需要整数，得到 %q", v.Text())
	}
	n, err := strconv.Atoi(*v.Number)
	if err != nil {
		return 0, fmt.Errorf("需要整数，得到 %q", *v.Number)
	}
	return n, nil
}

// Bool 解析 true/false、yes/no、on/off。
func (v *Value) Bool() (bool, error) {
	switch strings.ToLower(v.Text()) {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("需要布尔值，得到 %q", v.Text())
	}
}

// ArrayValue captures `[ ... ]` expressions.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Template returns the template block, or nil.
func (d *Document) Template() *Block {
	for _, s := range d.Sections {
		if s.Template != nil {
			return s.Template.Block
		}
	}
	return nil
}

// Output returns the output block, or nil.
func (d *Document) Output() *Block {
	for _, s := range d.Sections {
		if s.Output != nil {
			return s.Output.Block
		}
	}
	return nil
}

// Captions returns caption texts in declaration order.
func (d *Document) Captions() []string {
	var out []string
	for _, s := range d.Sections {
		if s.Caption != nil {
			out = append(out, string(s.Caption.Text))
		}
	}
	return out
}

// Parse parses DSL content from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString parses DSL content from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}
