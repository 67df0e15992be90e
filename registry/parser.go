package registry

import (
	"strconv"
	"strings"

	"github.com/chxio/chgo/errs"
)

// tokenKind enumerates the lexical classes the parser recognizes.
type tokenKind uint8

const (
	tokIdent tokenKind = iota
	tokLParen
	tokRParen
	tokComma
	tokInt
	tokString
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

// lexer turns a type string into a flat token stream. It is deliberately
// simple: identifiers are runs of letters/digits/underscores, integers are
// runs of digits (optionally signed), quoted strings are single- or
// double-quoted spans used for enum labels and timezone names.
type lexer struct {
	src []rune
	pos int
}

func newLexer(s string) *lexer { return &lexer{src: []rune(s)} }

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}

	return l.src[l.pos], true
}

func (l *lexer) next() token {
	for {
		r, ok := l.peekRune()
		if !ok {
			return token{kind: tokEOF}
		}

		if r == ' ' || r == '\t' || r == '\n' {
			l.pos++
			continue
		}

		break
	}

	r, _ := l.peekRune()

	switch {
	case r == '(':
		l.pos++
		return token{kind: tokLParen}
	case r == ')':
		l.pos++
		return token{kind: tokRParen}
	case r == ',':
		l.pos++
		return token{kind: tokComma}
	case r == '\'' || r == '"':
		return l.lexString(r)
	case r == '-' || (r >= '0' && r <= '9'):
		return l.lexInt()
	case isIdentStart(r):
		return l.lexIdent()
	default:
		l.pos++
		return token{kind: tokIdent, text: string(r)}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for {
		r, ok := l.peekRune()
		if !ok || !isIdentPart(r) {
			break
		}

		l.pos++
	}

	return token{kind: tokIdent, text: string(l.src[start:l.pos])}
}

func (l *lexer) lexInt() token {
	start := l.pos
	if r, ok := l.peekRune(); ok && r == '-' {
		l.pos++
	}

	for {
		r, ok := l.peekRune()
		if !ok || r < '0' || r > '9' {
			break
		}

		l.pos++
	}

	return token{kind: tokInt, text: string(l.src[start:l.pos])}
}

func (l *lexer) lexString(quote rune) token {
	l.pos++ // consume opening quote

	var sb strings.Builder

	for {
		r, ok := l.peekRune()
		if !ok {
			break
		}

		if r == quote {
			l.pos++
			break
		}

		if r == '\\' {
			l.pos++
			if r2, ok2 := l.peekRune(); ok2 {
				sb.WriteRune(r2)
				l.pos++
			}

			continue
		}

		sb.WriteRune(r)
		l.pos++
	}

	return token{kind: tokString, text: sb.String()}
}

// Parser parses a single type string into a ColumnDescriptor. It holds no
// state beyond the current token stream, so it is not safe for concurrent
// reuse across goroutines — construct one per Parse call (Parse does this
// for you).
type Parser struct {
	lex *lexer
	cur token
}

// Parse parses a server-supplied type string, e.g.
// "Array(Nullable(Decimal(9,3)))", into a ColumnDescriptor.
func Parse(typeString string) (ColumnDescriptor, error) {
	p := &Parser{lex: newLexer(typeString)}
	p.advance()

	desc, err := p.parseType()
	if err != nil {
		return ColumnDescriptor{}, err
	}

	if p.cur.kind != tokEOF {
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: "trailing input after " + typeString}
	}

	return desc, nil
}

func (p *Parser) advance() { p.cur = p.lex.next() }

func (p *Parser) expect(k tokenKind) (token, error) {
	if p.cur.kind != k {
		return token{}, &errs.SchemaError{Reason: "unknown_type", Detail: "unexpected token"}
	}

	t := p.cur
	p.advance()

	return t, nil
}

func (p *Parser) parseType() (ColumnDescriptor, error) {
	if p.cur.kind != tokIdent {
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: "expected type name"}
	}

	name := p.cur.text
	p.advance()

	switch {
	case isIntegerName(name):
		return parseIntegerName(name)
	case name == "Float32":
		return ColumnDescriptor{Category: CategoryFloat, WidthBits: 32, Signed: true}, nil
	case name == "Float64":
		return ColumnDescriptor{Category: CategoryFloat, WidthBits: 64, Signed: true}, nil
	case name == "Bool":
		return ColumnDescriptor{Category: CategoryBool}, nil
	case name == "String":
		return ColumnDescriptor{Category: CategoryString}, nil
	case name == "UUID":
		return ColumnDescriptor{Category: CategoryUUID}, nil
	case name == "IPv4":
		return ColumnDescriptor{Category: CategoryIPv4}, nil
	case name == "IPv6":
		return ColumnDescriptor{Category: CategoryIPv6}, nil
	case name == "Date":
		return ColumnDescriptor{Category: CategoryDate, WidthBits: 16}, nil
	case name == "Date32":
		return ColumnDescriptor{Category: CategoryDate, WidthBits: 32, Signed: true}, nil
	case name == "FixedString":
		return p.parseFixedString()
	case strings.HasPrefix(name, "Decimal"):
		return p.parseDecimal(name)
	case name == "DateTime":
		return p.parseDateTime()
	case name == "DateTime64":
		return p.parseDateTime64()
	case name == "Enum8":
		return p.parseEnum(8)
	case name == "Enum16":
		return p.parseEnum(16)
	case name == "Array":
		return p.parseSingleChild(CategoryArray)
	case name == "Tuple":
		return p.parseMultiChild(CategoryTuple)
	case name == "Nested":
		return p.parseMultiChild(CategoryNested)
	case name == "Map":
		return p.parseMap()
	case name == "Nullable":
		return p.parseNullable()
	case name == "LowCardinality":
		return p.parseLowCardinality()
	case name == "AggregateFunction":
		return p.parseAggregateFunction()
	default:
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: name}
	}
}

func isIntegerName(name string) bool {
	if strings.HasPrefix(name, "Int") {
		_, err := strconv.Atoi(strings.TrimPrefix(name, "Int"))
		return err == nil
	}

	if strings.HasPrefix(name, "UInt") {
		_, err := strconv.Atoi(strings.TrimPrefix(name, "UInt"))
		return err == nil
	}

	return false
}

func parseIntegerName(name string) (ColumnDescriptor, error) {
	signed := strings.HasPrefix(name, "Int")
	widthStr := strings.TrimPrefix(name, "Int")
	if !signed {
		widthStr = strings.TrimPrefix(name, "UInt")
	}

	width, err := strconv.Atoi(widthStr)
	if err != nil || !widthSet[width] {
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: name}
	}

	return ColumnDescriptor{Category: CategoryInteger, WidthBits: width, Signed: signed}, nil
}

func (p *Parser) parseFixedString() (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	n, err := p.expect(tokInt)
	if err != nil {
		return ColumnDescriptor{}, err
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	length, _ := strconv.Atoi(n.text)

	return ColumnDescriptor{Category: CategoryFixedString, FixedLength: length}, nil
}

// decimalWidth rounds a decimal's precision up to the nearest storage width
// as specified: ceil(p * log2(10)) rounded up to {32,64,128,256} bits.
func decimalWidth(precision int) int {
	// log2(10) ~= 3.3219280948873626
	bits := int(float64(precision)*3.3219280948873626 + 0.999999)

	switch {
	case bits <= 32:
		return 32
	case bits <= 64:
		return 64
	case bits <= 128:
		return 128
	default:
		return 256
	}
}

func (p *Parser) parseDecimal(name string) (ColumnDescriptor, error) {
	// Decimal(P,S) or Decimal32(S)/Decimal64(S)/Decimal128(S)/Decimal256(S).
	fixedWidth := 0
	switch name {
	case "Decimal32":
		fixedWidth = 32
	case "Decimal64":
		fixedWidth = 64
	case "Decimal128":
		fixedWidth = 128
	case "Decimal256":
		fixedWidth = 256
	case "Decimal":
		fixedWidth = 0
	default:
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: name}
	}

	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	var precision, scale int

	if fixedWidth == 0 {
		ptok, err := p.expect(tokInt)
		if err != nil {
			return ColumnDescriptor{}, err
		}

		precision, _ = strconv.Atoi(ptok.text)

		if _, err := p.expect(tokComma); err != nil {
			return ColumnDescriptor{}, err
		}

		stok, err := p.expect(tokInt)
		if err != nil {
			return ColumnDescriptor{}, err
		}

		scale, _ = strconv.Atoi(stok.text)
	} else {
		stok, err := p.expect(tokInt)
		if err != nil {
			return ColumnDescriptor{}, err
		}

		scale, _ = strconv.Atoi(stok.text)
		precision = fixedWidth // nominal, width is already fixed
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	if scale < 0 || scale > 76 {
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: "decimal scale out of range"}
	}

	width := fixedWidth
	if width == 0 {
		width = decimalWidth(precision)
	}

	return ColumnDescriptor{Category: CategoryDecimal, WidthBits: width, Signed: true, Precision: precision, Scale: scale}, nil
}

func (p *Parser) parseDateTime() (ColumnDescriptor, error) {
	d := ColumnDescriptor{Category: CategoryDateTime, WidthBits: 32}

	if p.cur.kind != tokLParen {
		return d, nil
	}

	p.advance()

	if p.cur.kind == tokString {
		d.Timezone = p.cur.text
		p.advance()
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	return d, nil
}

func (p *Parser) parseDateTime64() (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	stok, err := p.expect(tokInt)
	if err != nil {
		return ColumnDescriptor{}, err
	}

	scale, _ := strconv.Atoi(stok.text)
	if scale < 0 || scale > 9 {
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: "datetime64 scale out of range"}
	}

	d := ColumnDescriptor{Category: CategoryDateTime, WidthBits: 64, Scale: scale}

	if p.cur.kind == tokComma {
		p.advance()

		tz, err := p.expect(tokString)
		if err != nil {
			return ColumnDescriptor{}, err
		}

		d.Timezone = tz.text
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	return d, nil
}

func (p *Parser) parseEnum(width int) (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	var members []EnumMember

	for {
		nameTok, err := p.expect(tokString)
		if err != nil {
			return ColumnDescriptor{}, err
		}

		if p.cur.kind == tokIdent && p.cur.text == "=" {
			p.advance()
		}

		valTok, err := p.expect(tokInt)
		if err != nil {
			return ColumnDescriptor{}, err
		}

		v, _ := strconv.Atoi(valTok.text)
		members = append(members, EnumMember{Name: nameTok.text, Value: int16(v)})

		if p.cur.kind == tokComma {
			p.advance()
			continue
		}

		break
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	return ColumnDescriptor{Category: CategoryEnum, WidthBits: width, Signed: true, EnumMembers: members}, nil
}

func (p *Parser) parseSingleChild(cat Category) (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	child, err := p.parseType()
	if err != nil {
		return ColumnDescriptor{}, err
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	d := ColumnDescriptor{Category: cat, Children: []ColumnDescriptor{child}}

	return d, d.validate()
}

func (p *Parser) parseMultiChild(cat Category) (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	var children []ColumnDescriptor

	for {
		// Nested(name Type, ...) carries a leading field name for each child;
		// Tuple(Type, ...) does not. Peek: an identifier that is not a type
		// name, followed by another identifier, means "name type".
		child, err := p.parseMaybeNamedType()
		if err != nil {
			return ColumnDescriptor{}, err
		}

		children = append(children, child)

		if p.cur.kind == tokComma {
			p.advance()
			continue
		}

		break
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	d := ColumnDescriptor{Category: cat, Children: children}

	return d, d.validate()
}

func (p *Parser) parseMaybeNamedType() (ColumnDescriptor, error) {
	// A named field looks like `foo UInt64`: two consecutive identifiers
	// where the first isn't itself a recognized type name.
	if p.cur.kind == tokIdent && !isKnownTypeName(p.cur.text) {
		fieldName := p.cur.text
		save := *p.lex
		saveCur := p.cur
		p.advance()

		if p.cur.kind == tokIdent {
			child, err := p.parseType()
			if err != nil {
				return ColumnDescriptor{}, err
			}

			child.Name = fieldName

			return child, nil
		}

		*p.lex = save
		p.cur = saveCur
	}

	return p.parseType()
}

func isKnownTypeName(name string) bool {
	switch name {
	case "Float32", "Float64", "Bool", "String", "UUID", "IPv4", "IPv6", "Date", "Date32",
		"FixedString", "Decimal", "Decimal32", "Decimal64", "Decimal128", "Decimal256",
		"DateTime", "DateTime64", "Enum8", "Enum16", "Array", "Tuple", "Nested", "Map",
		"Nullable", "LowCardinality", "AggregateFunction":
		return true
	default:
		return isIntegerName(name)
	}
}

func (p *Parser) parseMap() (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	key, err := p.parseType()
	if err != nil {
		return ColumnDescriptor{}, err
	}

	if _, err := p.expect(tokComma); err != nil {
		return ColumnDescriptor{}, err
	}

	val, err := p.parseType()
	if err != nil {
		return ColumnDescriptor{}, err
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	d := ColumnDescriptor{Category: CategoryMap, Children: []ColumnDescriptor{key, val}}

	return d, d.validate()
}

func (p *Parser) parseNullable() (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	inner, err := p.parseType()
	if err != nil {
		return ColumnDescriptor{}, err
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	if inner.Nullable || inner.Category == CategoryNullable ||
		inner.Category == CategoryArray || inner.Category == CategoryTuple || inner.Category == CategoryMap {
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "illegal_nullable", Detail: "Nullable(" + inner.Category.String() + ") forbidden"}
	}

	inner.Nullable = true
	d := ColumnDescriptor{Category: CategoryNullable, Nullable: true, Children: []ColumnDescriptor{inner}}

	return d, d.validate()
}

func (p *Parser) parseLowCardinality() (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	inner, err := p.parseType()
	if err != nil {
		return ColumnDescriptor{}, err
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	switch inner.Category {
	case CategoryString, CategoryFixedString, CategoryInteger, CategoryFloat, CategoryDate, CategoryDateTime, CategoryNullable:
		// permitted
	default:
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: "LowCardinality(" + inner.Category.String() + ") not permitted"}
	}

	d := ColumnDescriptor{Category: CategoryLowCardinality, Children: []ColumnDescriptor{inner}}

	return d, d.validate()
}

func (p *Parser) parseAggregateFunction() (ColumnDescriptor, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return ColumnDescriptor{}, err
	}

	fn, err := p.expect(tokIdent)
	if err != nil {
		return ColumnDescriptor{}, err
	}

	if fn.text != "groupBitmap" {
		return ColumnDescriptor{}, &errs.SchemaError{Reason: "unknown_type", Detail: "AggregateFunction(" + fn.text + ") unsupported"}
	}

	if _, err := p.expect(tokComma); err != nil {
		return ColumnDescriptor{}, err
	}

	// Consume the single argument type (the bitmap's integer element type);
	// the wire form is an opaque blob regardless of its value.
	if _, err := p.parseType(); err != nil {
		return ColumnDescriptor{}, err
	}

	if _, err := p.expect(tokRParen); err != nil {
		return ColumnDescriptor{}, err
	}

	return ColumnDescriptor{Category: CategoryAggregateBitmap}, nil
}
