/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package predicate

import (
	"strings"

	"github.com/uptrace/bun"
)

// Expr is a boolean SQL fragment using bun "?" placeholders together with its
// arguments. A nil *Expr stands for "no condition" and is accepted wherever
// an Expr is.
type Expr struct {
	query string
	args  []interface{}
}

func newExpr(query string, args ...interface{}) *Expr {
	return &Expr{query: query, args: args}
}

// Raw wraps a hand written condition.
func Raw(query string, args ...interface{}) *Expr {
	return newExpr(query, args...)
}

// Query returns the placeholder form of the condition.
func (e *Expr) Query() string {
	if e == nil {
		return ""
	}
	return e.query
}

// Args returns the arguments bound to the placeholders of Query.
func (e *Expr) Args() []interface{} {
	if e == nil {
		return nil
	}
	return e.args
}

func Eq(column string, value interface{}) *Expr {
	return newExpr("? = ?", bun.Ident(column), value)
}

func Ne(column string, value interface{}) *Expr {
	return newExpr("? <> ?", bun.Ident(column), value)
}

func Gt(column string, value interface{}) *Expr {
	return newExpr("? > ?", bun.Ident(column), value)
}

// Goe is "greater or equal".
func Goe(column string, value interface{}) *Expr {
	return newExpr("? >= ?", bun.Ident(column), value)
}

func Lt(column string, value interface{}) *Expr {
	return newExpr("? < ?", bun.Ident(column), value)
}

// Loe is "less or equal".
func Loe(column string, value interface{}) *Expr {
	return newExpr("? <= ?", bun.Ident(column), value)
}

// Between is inclusive on both ends.
func Between(column string, from, to interface{}) *Expr {
	return newExpr("? BETWEEN ? AND ?", bun.Ident(column), from, to)
}

func In(column string, values interface{}) *Expr {
	return newExpr("? IN (?)", bun.Ident(column), bun.In(values))
}

func IsNull(column string) *Expr {
	return newExpr("? IS NULL", bun.Ident(column))
}

// EqColumn compares two columns, as used by theta joins.
func EqColumn(left, right string) *Expr {
	return newExpr("? = ?", bun.Ident(left), bun.Ident(right))
}

// EqIfText returns Eq(column, s) when s has non-blank text and nil otherwise.
func EqIfText(column, s string) *Expr {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return Eq(column, s)
}

// EqIfPresent returns Eq(column, *v) when v is non-nil and nil otherwise.
func EqIfPresent[T any](column string, v *T) *Expr {
	if v == nil {
		return nil
	}
	return Eq(column, *v)
}

func GoeIfPresent[T any](column string, v *T) *Expr {
	if v == nil {
		return nil
	}
	return Goe(column, *v)
}

func LoeIfPresent[T any](column string, v *T) *Expr {
	if v == nil {
		return nil
	}
	return Loe(column, *v)
}

// And returns the conjunction of e and other. A nil operand is dropped, so
// the result is nil only when both are nil.
func (e *Expr) And(other *Expr) *Expr {
	return e.join(" AND ", other)
}

// Or returns the disjunction of e and other with the same nil rules as And.
func (e *Expr) Or(other *Expr) *Expr {
	return e.join(" OR ", other)
}

func (e *Expr) join(sep string, other *Expr) *Expr {
	switch {
	case e == nil:
		return other
	case other == nil:
		return e
	}
	args := make([]interface{}, 0, len(e.args)+len(other.args))
	args = append(args, e.args...)
	args = append(args, other.args...)
	return newExpr("("+e.query+")"+sep+"("+other.query+")", args...)
}

// All is the conjunction of the non-nil exprs, or nil when there are none.
func All(exprs ...*Expr) *Expr {
	var out *Expr
	for _, e := range exprs {
		out = out.And(e)
	}
	return out
}

// Any is the disjunction of the non-nil exprs, or nil when there are none.
func Any(exprs ...*Expr) *Expr {
	var out *Expr
	for _, e := range exprs {
		out = out.Or(e)
	}
	return out
}
