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
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func render(t *testing.T, db *bun.DB, exprs ...*Expr) string {
	t.Helper()
	q := db.NewSelect().TableExpr("member AS m").Column("m.member_id")
	return Where(q, exprs...).String()
}

func intPtr(v int) *int { return &v }

func TestNilOperands(t *testing.T) {
	var none *Expr
	e := Eq("m.age", 10)

	assert.Same(t, e, none.And(e))
	assert.Same(t, e, e.And(nil))
	assert.Same(t, e, none.Or(e))
	assert.Nil(t, none.And(nil))
	assert.Nil(t, All(nil, nil))
	assert.Nil(t, Any())
	assert.Equal(t, "", none.Query())
	assert.Nil(t, none.Args())
}

func TestConditionalConstructors(t *testing.T) {
	assert.Nil(t, EqIfText("m.username", ""))
	assert.Nil(t, EqIfText("m.username", "   "))
	assert.NotNil(t, EqIfText("m.username", "member1"))

	assert.Nil(t, GoeIfPresent[int]("m.age", nil))
	assert.Nil(t, LoeIfPresent[int]("m.age", nil))
	assert.Nil(t, EqIfPresent[int]("m.age", nil))
	assert.Equal(t, []interface{}{bun.Ident("m.age"), 35}, GoeIfPresent("m.age", intPtr(35)).Args())
}

func TestJoinKeepsArgumentOrder(t *testing.T) {
	e := Eq("m.username", "member1").And(Goe("m.age", 10)).Or(IsNull("t.name"))
	assert.Equal(t, "((? = ?) AND (? >= ?)) OR (? IS NULL)", e.Query())
	assert.Equal(t, []interface{}{
		bun.Ident("m.username"), "member1",
		bun.Ident("m.age"), 10,
		bun.Ident("t.name"),
	}, e.Args())
}

func TestWhereRendersOnlyPresentConditions(t *testing.T) {
	db := newTestDB(t)

	got := render(t, db, EqIfText("m.username", ""), EqIfText("t.name", "teamB"), GoeIfPresent("m.age", intPtr(35)), LoeIfPresent[int]("m.age", nil))
	assert.Contains(t, got, `"t"."name" = 'teamB'`)
	assert.Contains(t, got, `"m"."age" >= 35`)
	assert.NotContains(t, got, `"m"."username"`)
	assert.NotContains(t, got, `<=`)

	assert.NotContains(t, render(t, db, nil, nil), "WHERE")
}

func TestBuilder(t *testing.T) {
	db := newTestDB(t)

	b := NewBuilder()
	assert.False(t, b.HasValue())
	b.And(nil).And(Eq("m.age", 10))
	assert.True(t, b.HasValue())

	seeded := NewBuilder(Eq("m.username", "member1")).And(Eq("m.age", 10))
	got := render(t, db, seeded.Expr())
	assert.Contains(t, got, `("m"."username" = 'member1') AND ("m"."age" = 10)`)
}

func TestOtherOperators(t *testing.T) {
	db := newTestDB(t)

	assert.Contains(t, render(t, db, Between("m.age", 0, 20)), `"m"."age" BETWEEN 0 AND 20`)
	assert.Contains(t, render(t, db, In("m.age", []int{10, 20})), `"m"."age" IN (10, 20)`)
	assert.Contains(t, render(t, db, EqColumn("m.username", "t.name")), `"m"."username" = "t"."name"`)
	assert.Contains(t, render(t, db, Ne("m.age", 1), Lt("m.age", 28), Gt("m.age", 18)), `"m"."age" < 28`)
	assert.Contains(t, render(t, db, Raw("m.age % ? = 0", 2)), `m.age % 2 = 0`)
}

func TestWhereOnUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)

	upd := Where(db.NewUpdate().Table("member").Set("age = age + 1"), Lt("age", 28)).String()
	assert.Contains(t, upd, `WHERE ("age" < 28)`)

	del := Where(db.NewDelete().TableExpr("member"), Gt("age", 18)).String()
	assert.Contains(t, del, `WHERE ("age" > 18)`)
}
