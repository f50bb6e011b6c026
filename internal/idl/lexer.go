package idl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	text string // identifier name, unquoted string, number literal or punctuation
	raw  string // original text, used for diagnostics
	doc  string // doc comment immediately preceding the token
	// quoted is set for backtick-escaped identifiers, which never act as keywords
	quoted    bool
	line, col int
}

func (t token) is(punct string) bool { return t.kind == tokPunct && t.text == punct }

func (t token) isKeyword(kw string) bool { return t.kind == tokIdent && !t.quoted && t.text == kw }

func (t token) describe() string {
	if t.kind == tokEOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.raw)
}

// SyntaxError is a lexical or grammatical error with its position.
type SyntaxError struct {
	File string
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

type lexer struct {
	file      string
	src       string
	pos       int
	line, col int
}

func newLexer(file string, src []byte) *lexer {
	return &lexer{file: file, src: string(src), line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, a ...any) error {
	return &SyntaxError{File: l.file, Line: line, Col: col, Msg: fmt.Sprintf(format, a...)}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) advance() rune {
	r, n := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += n
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// tokens lexes the whole input.
func (l *lexer) tokens() ([]token, error) {
	var out []token
	for {
		doc, err := l.skipSpace()
		if err != nil {
			return nil, err
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tok.doc = doc
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

// skipSpace skips whitespace and comments and returns the text of the last
// doc comment seen.
func (l *lexer) skipSpace() (string, error) {
	doc := ""
	for l.pos < len(l.src) {
		r := l.peekRune()
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case strings.HasPrefix(l.src[l.pos:], "//"):
			for l.pos < len(l.src) && l.peekRune() != '\n' {
				l.advance()
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			line, col := l.line, l.col
			isDoc := strings.HasPrefix(l.src[l.pos:], "/**") && !strings.HasPrefix(l.src[l.pos:], "/**/")
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return "", l.errorf(line, col, "unterminated comment")
			}
			body := l.src[l.pos+2 : l.pos+2+end]
			for i := 0; i < end+4; {
				r := l.advance()
				i += utf8.RuneLen(r)
			}
			if isDoc {
				doc = cleanDoc(body[1:])
			}
		default:
			return doc, nil
		}
	}
	return doc, nil
}

// cleanDoc strips the comment decoration from a doc comment body.
func cleanDoc(body string) string {
	lines := strings.Split(body, "\n")
	for i, ln := range lines {
		ln = strings.TrimSpace(ln)
		ln = strings.TrimPrefix(ln, "*")
		lines[i] = strings.TrimSpace(ln)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

const punctuation = "{}()[]<>,;=?@:"

func (l *lexer) next() (token, error) {
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}
	start := l.pos
	r := l.peekRune()
	switch {
	case r == '"':
		s, err := l.lexString()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, raw: l.src[start:l.pos], line: line, col: col}, nil
	case r == '`':
		l.advance()
		for l.pos < len(l.src) && l.peekRune() != '`' {
			l.advance()
		}
		if l.pos >= len(l.src) {
			return token{}, l.errorf(line, col, "unterminated quoted identifier")
		}
		l.advance()
		name := l.src[start+1 : l.pos-1]
		return token{kind: tokIdent, text: name, raw: l.src[start:l.pos], quoted: true, line: line, col: col}, nil
	case r == '-' || (r >= '0' && r <= '9'):
		l.advance()
		for l.pos < len(l.src) {
			c := l.peekRune()
			if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
				l.advance()
				continue
			}
			break
		}
		lit := l.src[start:l.pos]
		if lit == "-" {
			return token{}, l.errorf(line, col, "unexpected character '-'")
		}
		return token{kind: tokNumber, text: lit, raw: lit, line: line, col: col}, nil
	case isIdentStart(r):
		for l.pos < len(l.src) && isIdentPart(l.peekRune()) {
			l.advance()
		}
		text := l.src[start:l.pos]
		return token{kind: tokIdent, text: text, raw: text, line: line, col: col}, nil
	case strings.ContainsRune(punctuation, r):
		l.advance()
		return token{kind: tokPunct, text: string(r), raw: string(r), line: line, col: col}, nil
	default:
		return token{}, l.errorf(line, col, "unexpected character %q", r)
	}
}

func (l *lexer) lexString() (string, error) {
	line, col := l.line, l.col
	l.advance()
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(line, col, "unterminated string")
		}
		r := l.advance()
		switch r {
		case '"':
			return b.String(), nil
		case '\n':
			return "", l.errorf(line, col, "unterminated string")
		case '\\':
			if l.pos >= len(l.src) {
				return "", l.errorf(line, col, "unterminated string")
			}
			esc := l.advance()
			switch esc {
			case '"', '\\', '/':
				b.WriteRune(esc)
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				if l.pos+4 > len(l.src) {
					return "", l.errorf(l.line, l.col, "invalid unicode escape")
				}
				var v rune
				for i := 0; i < 4; i++ {
					c := l.advance()
					d := hexVal(c)
					if d < 0 {
						return "", l.errorf(l.line, l.col, "invalid unicode escape")
					}
					v = v<<4 | rune(d)
				}
				b.WriteRune(v)
			default:
				return "", l.errorf(l.line, l.col, "invalid escape \\%c", esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func hexVal(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

// isIdentPart accepts dots and dashes so qualified names and annotation
// names such as java-class lex as one identifier.
func isIdentPart(r rune) bool {
	return r == '_' || r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
