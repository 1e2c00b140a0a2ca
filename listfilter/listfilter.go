// Package listfilter compiles AIP-160 filter expressions into parameterized
// SQL conditions.
package listfilter

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/louisbranch/viewkit/weberror"
)

// FieldType enumerates filterable column types.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeBool
	TypeTimestamp
)

// Field declares one filterable field. Column is the SQL column backing the
// expression identifier; empty means the identifier itself.
type Field struct {
	Name   string
	Type   FieldType
	Column string
}

// Schema is an ordered set of filterable fields.
type Schema struct {
	Fields []Field
}

// Condition is a parameterized SQL WHERE fragment. An empty Clause means no
// filtering.
type Condition struct {
	Clause string
	Params []any
}

// Declarations builds the filter declarations for the schema.
func (s Schema) Declarations() (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	seen := make(map[string]bool, len(s.Fields))
	for _, field := range s.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return nil, weberror.Config("listfilter", "field name is required")
		}
		if seen[name] {
			return nil, weberror.Configf("listfilter", "field %q is declared twice", name)
		}
		seen[name] = true
		opts = append(opts, filtering.DeclareIdent(name, field.celType()))
	}
	return filtering.NewDeclarations(opts...)
}

func (f Field) celType() *expr.Type {
	switch f.Type {
	case TypeInt:
		return filtering.TypeInt
	case TypeBool:
		return filtering.TypeBool
	case TypeTimestamp:
		return filtering.TypeTimestamp
	default:
		return filtering.TypeString
	}
}

func (s Schema) columns() map[string]string {
	columns := make(map[string]string, len(s.Fields))
	for _, field := range s.Fields {
		name := strings.TrimSpace(field.Name)
		column := strings.TrimSpace(field.Column)
		if column == "" {
			column = name
		}
		columns[name] = column
	}
	return columns
}

// Compile parses an AIP-160 filter expression against the schema and
// translates it into a SQL condition. An empty expression compiles to an
// empty condition.
func Compile(schema Schema, expression string) (Condition, error) {
	if strings.TrimSpace(expression) == "" {
		return Condition{}, nil
	}

	decls, err := schema.Declarations()
	if err != nil {
		return Condition{}, err
	}

	parsed, err := filtering.ParseFilterString(expression, decls)
	if err != nil {
		return Condition{}, weberror.EK(weberror.KindInvalidInput, "filter.invalid", fmt.Sprintf("parse filter: %v", err))
	}

	tr := translator{columns: schema.columns()}
	return tr.expr(parsed.CheckedExpr.GetExpr())
}

type translator struct {
	columns map[string]string
}

func (tr translator) expr(e *expr.Expr) (Condition, error) {
	if e == nil {
		return Condition{}, nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return Condition{}, weberror.EK(weberror.KindInvalidInput, "filter.invalid", fmt.Sprintf("unsupported expression type %T", e.ExprKind))
	}
	return tr.call(call.CallExpr)
}

func (tr translator) call(call *expr.Expr_Call) (Condition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return tr.binary(call.Args, "AND")
	case "_||_", "OR":
		return tr.binary(call.Args, "OR")
	case "!_", "NOT":
		return tr.not(call.Args)
	case "_==_", "=":
		return tr.comparison(call.Args, "=")
	case "_!=_", "!=":
		return tr.comparison(call.Args, "!=")
	case "_<_", "<":
		return tr.comparison(call.Args, "<")
	case "_<=_", "<=":
		return tr.comparison(call.Args, "<=")
	case "_>_", ">":
		return tr.comparison(call.Args, ">")
	case "_>=_", ">=":
		return tr.comparison(call.Args, ">=")
	case ":":
		return tr.has(call.Args)
	default:
		return Condition{}, weberror.EK(weberror.KindInvalidInput, "filter.unsupported", fmt.Sprintf("unsupported function %s", call.Function))
	}
}

func (tr translator) binary(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, weberror.EK(weberror.KindInvalidInput, "filter.invalid", op+" requires 2 arguments")
	}
	left, err := tr.expr(args[0])
	if err != nil {
		return Condition{}, err
	}
	right, err := tr.expr(args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func (tr translator) not(args []*expr.Expr) (Condition, error) {
	if len(args) != 1 {
		return Condition{}, weberror.EK(weberror.KindInvalidInput, "filter.invalid", "NOT requires 1 argument")
	}
	inner, err := tr.expr(args[0])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf("(NOT %s)", inner.Clause),
		Params: inner.Params,
	}, nil
}

func (tr translator) comparison(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, weberror.EK(weberror.KindInvalidInput, "filter.invalid", "comparison requires 2 arguments")
	}
	column, err := tr.column(args[0])
	if err != nil {
		return Condition{}, err
	}
	value, err := tr.value(args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

// has translates the AIP `field:value` operator as a substring match with
// LIKE wildcards escaped.
func (tr translator) has(args []*expr.Expr) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, weberror.EK(weberror.KindInvalidInput, "filter.invalid", "has requires 2 arguments")
	}
	column, err := tr.column(args[0])
	if err != nil {
		return Condition{}, err
	}
	value, err := tr.value(args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, column),
		Params: []any{"%" + escapeLike(fmt.Sprint(value)) + "%"},
	}, nil
}

func (tr translator) column(e *expr.Expr) (string, error) {
	if e == nil {
		return "", weberror.EK(weberror.KindInvalidInput, "filter.invalid", "nil expression")
	}
	ident, ok := e.ExprKind.(*expr.Expr_IdentExpr)
	if !ok {
		return "", weberror.EK(weberror.KindInvalidInput, "filter.invalid", fmt.Sprintf("expected field identifier, got %T", e.ExprKind))
	}
	column, ok := tr.columns[ident.IdentExpr.GetName()]
	if !ok {
		return "", weberror.EK(weberror.KindInvalidInput, "filter.unknown_field", fmt.Sprintf("unknown field %s", ident.IdentExpr.GetName()))
	}
	return column, nil
}

func (tr translator) value(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, weberror.EK(weberror.KindInvalidInput, "filter.invalid", "nil expression")
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return constValue(kind.ConstExpr)
	case *expr.Expr_CallExpr:
		if kind.CallExpr.Function == "timestamp" && len(kind.CallExpr.Args) == 1 {
			return timestampValue(kind.CallExpr.Args[0])
		}
		return nil, weberror.EK(weberror.KindInvalidInput, "filter.invalid", fmt.Sprintf("unsupported function in value position: %s", kind.CallExpr.Function))
	default:
		return nil, weberror.EK(weberror.KindInvalidInput, "filter.invalid", fmt.Sprintf("expected constant or timestamp, got %T", kind))
	}
}

func constValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, weberror.EK(weberror.KindInvalidInput, "filter.invalid", "nil constant")
	}
	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, weberror.EK(weberror.KindInvalidInput, "filter.invalid", fmt.Sprintf("unsupported constant type %T", kind))
	}
}

// timestampValue normalizes timestamp("...") arguments to RFC3339Nano UTC so
// lexicographic comparison matches chronological order in storage.
func timestampValue(e *expr.Expr) (string, error) {
	if e == nil {
		return "", weberror.EK(weberror.KindInvalidInput, "filter.invalid", "nil timestamp argument")
	}
	constExpr, ok := e.ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return "", weberror.EK(weberror.KindInvalidInput, "filter.invalid", "timestamp argument must be a constant string")
	}
	strVal, ok := constExpr.ConstExpr.ConstantKind.(*expr.Constant_StringValue)
	if !ok {
		return "", weberror.EK(weberror.KindInvalidInput, "filter.invalid", "timestamp argument must be a string")
	}
	t, err := time.Parse(time.RFC3339, strVal.StringValue)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, strVal.StringValue)
		if err != nil {
			return "", weberror.EK(weberror.KindInvalidInput, "filter.invalid", fmt.Sprintf("invalid timestamp format: %s", strVal.StringValue))
		}
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
