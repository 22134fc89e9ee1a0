// Package sql is the statement front end for the shell: it turns statement
// text into the structured query forms the engine consumes. It validates
// shape only; column existence and types are the engine's job.
package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vddb/vddb/internal/query"
	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/types"
)

// Parse parses a single statement. Policy: the statement must end with ';'.
func Parse(input string) (query.Query, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("parser: empty statement: %w", types.ErrQuery)
	}
	if !strings.HasSuffix(s, ";") {
		return nil, fmt.Errorf("parser: missing ';' terminator: %w", types.ErrQuery)
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, fmt.Errorf("parser: empty statement: %w", types.ErrQuery)
	}

	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	var q query.Query
	switch {
	case p.acceptKeyword("BEGIN"):
		q = &query.Begin{}
	case p.acceptKeyword("START"):
		if !p.acceptKeyword("TRANSACTION") {
			return nil, p.errf("expected TRANSACTION after START")
		}
		q = &query.Begin{}
	case p.acceptKeyword("COMMIT"):
		q = &query.Commit{}
	case p.acceptKeyword("ROLLBACK"):
		q = &query.Rollback{}
	case p.acceptKeyword("CREATE"):
		q, err = p.parseCreateTable()
	case p.acceptKeyword("DROP"):
		q, err = p.parseDropTable()
	case p.acceptKeyword("INSERT"):
		q, err = p.parseInsert()
	case p.acceptKeyword("DELETE"):
		q, err = p.parseDelete()
	case p.acceptKeyword("SELECT"):
		q, err = p.parseSelect()
	default:
		return nil, p.errf("unsupported statement")
	}
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errf("trailing input after statement")
	}
	return q, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.peek().keyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.errf("expected %s", kw)
	}
	return nil
}

func (p *parser) acceptSymbol(s string) bool {
	if p.peek().symbol(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectSymbol(s string) error {
	if !p.acceptSymbol(s) {
		return p.errf("expected %q", s)
	}
	return nil
}

func (p *parser) ident() (string, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", p.errf("expected identifier, got %q", t.text)
	}
	p.pos++
	return t.text, nil
}

func (p *parser) errf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("parser: %s near token %d: %w", msg, p.pos, types.ErrQuery)
}

// ---- CREATE / DROP ----

var fieldTypes = map[string]schema.FieldType{
	"INT": schema.FieldInteger, "INTEGER": schema.FieldInteger,
	"FLOAT": schema.FieldFloat, "REAL": schema.FieldFloat, "DOUBLE": schema.FieldFloat,
	"TEXT": schema.FieldText, "STRING": schema.FieldText, "VARCHAR": schema.FieldText,
	"BOOL": schema.FieldBoolean, "BOOLEAN": schema.FieldBoolean,
	"TIMESTAMP": schema.FieldTimestamp,
	"JSON":      schema.FieldJSON,
	"BINARY":    schema.FieldBinary, "BLOB": schema.FieldBinary,
}

func (p *parser) parseCreateTable() (query.Query, error) {
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	var cols []schema.Column
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &query.CreateTable{Table: table, Columns: cols}, nil
}

func (p *parser) parseColumnDef() (schema.Column, error) {
	name, err := p.ident()
	if err != nil {
		return schema.Column{}, err
	}
	typeName, err := p.ident()
	if err != nil {
		return schema.Column{}, err
	}
	ft, ok := fieldTypes[strings.ToUpper(typeName)]
	if !ok {
		return schema.Column{}, p.errf("unknown column type %q", typeName)
	}
	// VARCHAR(255) and friends: the length is accepted and ignored.
	if p.acceptSymbol("(") {
		if p.peek().kind != tokNumber {
			return schema.Column{}, p.errf("expected length after %s(", typeName)
		}
		p.next()
		if err := p.expectSymbol(")"); err != nil {
			return schema.Column{}, err
		}
	}
	dt, err := ft.StorageType()
	if err != nil {
		return schema.Column{}, err
	}

	col := schema.Column{Name: name, Type: dt, Nullable: true}
	for {
		switch {
		case p.acceptKeyword("NOT"):
			if err := p.expectKeyword("NULL"); err != nil {
				return schema.Column{}, err
			}
			col.Nullable = false
		case p.acceptKeyword("PRIMARY"):
			if err := p.expectKeyword("KEY"); err != nil {
				return schema.Column{}, err
			}
			col.PrimaryKey = true
			col.Nullable = false
		case p.acceptKeyword("UNIQUE"):
			col.Unique = true
		default:
			return col, nil
		}
	}
}

func (p *parser) parseDropTable() (query.Query, error) {
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	return &query.DropTable{Table: table}, nil
}

// ---- INSERT / DELETE ----

func (p *parser) parseInsert() (query.Query, error) {
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	var vals []types.Value
	for {
		v, err := p.literal()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &query.Insert{Table: table, Values: vals}, nil
}

func (p *parser) parseDelete() (query.Query, error) {
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}
	return &query.Delete{Table: table, Where: where}, nil
}

// literal parses a constant: 'text', 42, 1.5, with optional leading '-'.
// Integers without a decimal point become INT32, the rest FLOAT32.
func (p *parser) literal() (types.Value, error) {
	neg := p.acceptSymbol("-")
	t := p.next()
	switch t.kind {
	case tokString:
		if neg {
			return types.Value{}, p.errf("cannot negate a string literal")
		}
		return types.NewText(t.text), nil
	case tokNumber:
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 32)
			if err != nil {
				return types.Value{}, p.errf("bad float literal %q", t.text)
			}
			if neg {
				f = -f
			}
			return types.NewFloat32(float32(f)), nil
		}
		i, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return types.Value{}, p.errf("bad integer literal %q", t.text)
		}
		if neg {
			i = -i
		}
		if i < -1<<31 || i > 1<<31-1 {
			return types.Value{}, fmt.Errorf("parser: integer %d out of INT32 range: %w", i, types.ErrInvalidData)
		}
		return types.NewInt32(int32(i)), nil
	default:
		return types.Value{}, p.errf("expected literal, got %q", t.text)
	}
}
