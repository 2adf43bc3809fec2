// Package filter translates AIP-160 event filters into SQLite conditions.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/gns/internal/services/registry/domain"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Condition is a SQL WHERE fragment with positional parameters.
type Condition struct {
	Clause string
	Params []any
}

// Empty reports whether the condition matches every row.
func (c Condition) Empty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

type field struct {
	column string
	typ    *expr.Type
	// normalize rewrites string constants to their stored form.
	normalize func(string) string
	// validate rejects string constants no stored row can hold.
	validate func(string) error
}

var fields = map[string]field{
	"type":           {column: "event_type", typ: filtering.TypeString, validate: knownEventType},
	"actor_id":       {column: "actor_id", typ: filtering.TypeString, normalize: strings.ToLower},
	"request_id":     {column: "request_id", typ: filtering.TypeString},
	"domain_hash":    {column: "domain_hash", typ: filtering.TypeString, normalize: strings.ToLower},
	"subdomain_hash": {column: "subdomain_hash", typ: filtering.TypeString, normalize: strings.ToLower},
	"seq":            {column: "seq", typ: filtering.TypeInt},
	"ts":             {column: "timestamp", typ: filtering.TypeTimestamp},
}

var comparisons = map[string]string{
	filtering.FunctionEquals:        "=",
	filtering.FunctionNotEquals:     "!=",
	filtering.FunctionLessThan:      "<",
	filtering.FunctionLessEquals:    "<=",
	filtering.FunctionGreaterThan:   ">",
	filtering.FunctionGreaterEquals: ">=",
}

// Declarations returns the identifiers an event filter may reference.
func Declarations() (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for name, f := range fields {
		opts = append(opts, filtering.DeclareIdent(name, f.typ))
	}
	return filtering.NewDeclarations(opts...)
}

// Parse parses an AIP-160 filter over registry events. A blank filter yields
// an empty condition.
func Parse(filterStr string) (Condition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return Condition{}, nil
	}
	decls, err := Declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return Condition{}, fmt.Errorf("parse filter: %w", err)
	}
	return translate(parsed.CheckedExpr.GetExpr())
}

func translate(e *expr.Expr) (Condition, error) {
	call := e.GetCallExpr()
	if call == nil {
		return Condition{}, fmt.Errorf("unsupported expression %T", e.GetExprKind())
	}
	switch call.GetFunction() {
	case filtering.FunctionAnd, filtering.FunctionOr:
		return translateJunction(call)
	case filtering.FunctionNot:
		if len(call.GetArgs()) != 1 {
			return Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translate(call.GetArgs()[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Clause: "NOT (" + inner.Clause + ")", Params: inner.Params}, nil
	}
	if op, ok := comparisons[call.GetFunction()]; ok {
		return translateComparison(call.GetArgs(), op)
	}
	return Condition{}, fmt.Errorf("unsupported function: %s", call.GetFunction())
}

func translateJunction(call *expr.Expr_Call) (Condition, error) {
	if len(call.GetArgs()) < 2 {
		return Condition{}, fmt.Errorf("%s requires at least 2 arguments", call.GetFunction())
	}
	joiner := " AND "
	if call.GetFunction() == filtering.FunctionOr {
		joiner = " OR "
	}
	clauses := make([]string, 0, len(call.GetArgs()))
	var params []any
	for _, arg := range call.GetArgs() {
		cond, err := translate(arg)
		if err != nil {
			return Condition{}, err
		}
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	return Condition{Clause: "(" + strings.Join(clauses, joiner) + ")", Params: params}, nil
}

func translateComparison(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident := args[0].GetIdentExpr()
	if ident == nil {
		return Condition{}, fmt.Errorf("expected identifier on the left of %s", op)
	}
	f, ok := fields[ident.GetName()]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field: %s", ident.GetName())
	}
	value, err := constantValue(args[1], f)
	if err != nil {
		return Condition{}, fmt.Errorf("field %s: %w", ident.GetName(), err)
	}
	return Condition{Clause: fmt.Sprintf("%s %s ?", f.column, op), Params: []any{value}}, nil
}

func constantValue(e *expr.Expr, f field) (any, error) {
	if call := e.GetCallExpr(); call != nil {
		if call.GetFunction() != filtering.FunctionTimestamp || len(call.GetArgs()) != 1 {
			return nil, fmt.Errorf("unsupported function in value position: %s", call.GetFunction())
		}
		return timestampMillis(call.GetArgs()[0])
	}
	c := e.GetConstExpr()
	if c == nil {
		return nil, fmt.Errorf("expected constant, got %T", e.GetExprKind())
	}
	switch kind := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		value := kind.StringValue
		if f.normalize != nil {
			value = f.normalize(value)
		}
		if f.validate != nil {
			if err := f.validate(value); err != nil {
				return nil, err
			}
		}
		return value, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	default:
		return nil, fmt.Errorf("unsupported constant type %T", kind)
	}
}

func knownEventType(value string) error {
	for _, eventType := range domain.EventTypes() {
		if string(eventType) == value {
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", value)
}

// timestampMillis converts timestamp("...") arguments to the stored
// millisecond representation.
func timestampMillis(e *expr.Expr) (int64, error) {
	raw, ok := e.GetConstExpr().GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return 0, fmt.Errorf("timestamp argument must be a constant string")
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.StringValue)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", raw.StringValue)
	}
	return ts.UTC().UnixMilli(), nil
}
