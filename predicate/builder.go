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

// Builder accumulates a condition step by step. Nil expressions are ignored,
// which lets callers append optional filters without branching.
type Builder struct {
	expr *Expr
}

// NewBuilder starts a builder, optionally seeded with an initial condition.
func NewBuilder(initial ...*Expr) *Builder {
	return &Builder{expr: All(initial...)}
}

func (b *Builder) And(e *Expr) *Builder {
	b.expr = b.expr.And(e)
	return b
}

func (b *Builder) Or(e *Expr) *Builder {
	b.expr = b.expr.Or(e)
	return b
}

// HasValue reports whether any condition was added.
func (b *Builder) HasValue() bool {
	return b.expr != nil
}

func (b *Builder) Expr() *Expr {
	return b.expr
}

// Whereable is implemented by bun's select, update and delete queries.
type Whereable[Q any] interface {
	Where(query string, args ...interface{}) Q
}

// Where applies the conjunction of the non-nil exprs to q. When every expr is
// nil, q is returned untouched.
func Where[Q Whereable[Q]](q Q, exprs ...*Expr) Q {
	e := All(exprs...)
	if e == nil {
		return q
	}
	return q.Where(e.query, e.args...)
}
