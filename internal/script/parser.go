package script

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrSyntax is returned for scripts that do not parse.
var ErrSyntax = errors.New("syntax error")

// Op is the kind of a statement.
type Op string

const (
	OpInsert Op = "insert"
	OpDelete Op = "delete"
	OpFind   Op = "find"
	OpKeys   Op = "keys"
	OpShow   Op = "show"
	OpCheck  Op = "check"
	OpClear  Op = "clear"
)

// Statement is one parsed statement. Keys is empty for statements that take
// no argument and has exactly one element for FIND.
type Statement struct {
	Op   Op
	Keys []int
	Line int
}

// String renders the statement back in script form.
func (s Statement) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(string(s.Op)))
	for i, k := range s.Keys {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(k))
	}
	return sb.String()
}

// Parser builds statements from tokens.
type Parser struct {
	lexer    *Lexer
	curToken Token
	peek     Token
}

// NewParser creates a parser over l.
func NewParser(l *Lexer) *Parser {
	p := &Parser{lexer: l}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a whole script.
func Parse(src string) ([]Statement, error) {
	return NewParser(NewLexer(src)).Parse()
}

// Parse reads statements until EOF and stops at the first error.
func (p *Parser) Parse() ([]Statement, error) {
	var stmts []Statement
	for {
		for p.curToken.Type == TokenSemicolon {
			p.nextToken()
		}
		if p.curToken.Type == TokenEOF {
			return stmts, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		switch p.curToken.Type {
		case TokenSemicolon, TokenEOF:
		default:
			return nil, p.unexpected("';'")
		}
	}
}

func (p *Parser) nextToken() {
	p.curToken = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) unexpected(want string) error {
	tok := p.curToken
	got := tok.Literal
	if tok.Type == TokenEOF {
		got = "end of input"
	}
	return errors.Wrapf(ErrSyntax, "line %d column %d: expected %s, got %q", tok.Line, tok.Column, want, got)
}

// parseStatement parses one statement and leaves curToken on the token after
// it.
func (p *Parser) parseStatement() (Statement, error) {
	stmt := Statement{Line: p.curToken.Line}
	switch p.curToken.Type {
	case TokenInsert:
		stmt.Op = OpInsert
	case TokenDelete:
		stmt.Op = OpDelete
	case TokenFind:
		stmt.Op = OpFind
	case TokenKeys:
		stmt.Op = OpKeys
	case TokenShow:
		stmt.Op = OpShow
	case TokenCheck:
		stmt.Op = OpCheck
	case TokenClear:
		stmt.Op = OpClear
	default:
		return stmt, p.unexpected("a statement")
	}
	p.nextToken()

	switch stmt.Op {
	case OpInsert, OpDelete:
		keys, err := p.parseKeyList()
		if err != nil {
			return stmt, err
		}
		stmt.Keys = keys
	case OpFind:
		k, err := p.parseKey()
		if err != nil {
			return stmt, err
		}
		stmt.Keys = []int{k}
	}
	return stmt, nil
}

// parseKeyList parses: key {, key}
func (p *Parser) parseKeyList() ([]int, error) {
	first, err := p.parseKey()
	if err != nil {
		return nil, err
	}
	keys := []int{first}
	for p.curToken.Type == TokenComma {
		p.nextToken()
		k, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (p *Parser) parseKey() (int, error) {
	if p.curToken.Type != TokenNumber {
		return 0, p.unexpected("a key")
	}
	k, err := strconv.Atoi(p.curToken.Literal)
	if err != nil {
		return 0, errors.Wrapf(ErrSyntax, "line %d column %d: key %s is out of range",
			p.curToken.Line, p.curToken.Column, p.curToken.Literal)
	}
	p.nextToken()
	return k, nil
}
