// Package script reads and runs small operation scripts against a tree.
//
// EDUCATIONAL NOTES:
// ------------------
// A script is a list of statements separated by semicolons:
//
//   INSERT 10, 20, 30;
//   DELETE 20;
//   FIND 30;
//   KEYS; SHOW; CHECK; CLEAR;
//
// Reading it happens in the two classic phases:
// 1. The lexer turns characters into tokens: [INSERT] [NUMBER:10] [COMMA] ...
// 2. The parser turns tokens into statements, reporting the line and column
//    of the first token it did not expect
//
// Keywords are case-insensitive. "--" and "#" start a comment that runs to
// the end of the line. The last statement may omit its semicolon.

package script

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	TokenNumber
	TokenIdent

	// Keywords
	TokenInsert
	TokenDelete
	TokenFind
	TokenKeys
	TokenShow
	TokenCheck
	TokenClear

	TokenComma
	TokenSemicolon
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIllegal:   "ILLEGAL",
	TokenNumber:    "NUMBER",
	TokenIdent:     "IDENT",
	TokenInsert:    "INSERT",
	TokenDelete:    "DELETE",
	TokenFind:      "FIND",
	TokenKeys:      "KEYS",
	TokenShow:      "SHOW",
	TokenCheck:     "CHECK",
	TokenClear:     "CLEAR",
	TokenComma:     "COMMA",
	TokenSemicolon: "SEMICOLON",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

var keywords = map[string]TokenType{
	"INSERT": TokenInsert,
	"DELETE": TokenDelete,
	"FIND":   TokenFind,
	"KEYS":   TokenKeys,
	"SHOW":   TokenShow,
	"CHECK":  TokenCheck,
	"CLEAR":  TokenClear,
}

// Token is one lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q at %d:%d", t.Type, t.Literal, t.Line, t.Column)
}

// Lexer tokenizes script input.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	line    int
	column  int
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token, skipping whitespace and comments.
func (l *Lexer) NextToken() Token {
	l.skipTrivia()

	tok := Token{Line: l.line, Column: l.column}
	switch {
	case l.ch == 0:
		tok.Type = TokenEOF
		return tok
	case l.ch == ',':
		tok.Type, tok.Literal = TokenComma, ","
	case l.ch == ';':
		tok.Type, tok.Literal = TokenSemicolon, ";"
	case isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())):
		return l.readNumber(tok)
	case isLetter(l.ch):
		return l.readWord(tok)
	default:
		tok.Type, tok.Literal = TokenIllegal, string(l.ch)
	}
	l.readChar()
	return tok
}

// Tokenize returns every token up to and including EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '#' || (l.ch == '-' && l.peekChar() == '-'):
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readNumber(tok Token) Token {
	start := l.pos
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	tok.Type, tok.Literal = TokenNumber, l.input[start:l.pos]
	return tok
}

func (l *Lexer) readWord(tok Token) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	tok.Literal = l.input[start:l.pos]
	if kw, ok := keywords[strings.ToUpper(tok.Literal)]; ok {
		tok.Type = kw
	} else {
		tok.Type = TokenIdent
	}
	return tok
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
