package repository

import "fmt"

// Field names a queryable entity attribute. Backends map fields to columns
// through a fixed table; values reaching the storage engine are always bound
// as parameters, never concatenated into query text.
type Field string

// Queryable fields.
const (
	FieldName    Field = "name"
	FieldCollege Field = "college"
	FieldPhone   Field = "phone"
	FieldActive  Field = "active"
	FieldCode    Field = "code"
	FieldLink    Field = "link"
)

// Op is a predicate operator. Equality is the only supported comparison.
type Op string

const OpEq Op = "="

// Predicate is a small tagged expression (field, operator, value) interpreted
// by each backend into its native query at call time. It exists so callers can
// compose lookups programmatically without ever building query strings.
type Predicate struct {
	Field Field
	Op    Op
	Value any
}

// Eq builds an equality predicate on the given field.
func Eq(field Field, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Validate checks the predicate against the set of fields the target entity
// exposes. Backends call this before interpreting the predicate; an unknown
// field or operator is an InvalidArgument, surfaced before any storage work.
func (p Predicate) Validate(allowed ...Field) error {
	if p.Op != OpEq {
		return fmt.Errorf("%w: unsupported operator %q", ErrInvalidArgument, p.Op)
	}
	for _, f := range allowed {
		if p.Field == f {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown field %q", ErrInvalidArgument, p.Field)
}
