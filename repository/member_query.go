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

package repository

import (
	"context"
	"database/sql"

	"github.com/tomoncle/querystudy/dto"
	"github.com/tomoncle/querystudy/entity"
	"github.com/tomoncle/querystudy/predicate"
	"github.com/tomoncle/querystudy/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const ageBracketCase = "CASE" +
	" WHEN m.age BETWEEN 0 AND 20 THEN '0~20'" +
	" WHEN m.age BETWEEN 21 AND 30 THEN '21~30'" +
	" ELSE 'other' END"

// MemberQueries holds member queries beyond lookups and searches: sorting,
// aggregates, joins, subqueries, projections and bulk updates.
type MemberQueries struct {
	db *bun.DB
}

func NewMemberQueries(db *bun.DB) *MemberQueries {
	return &MemberQueries{db: db}
}

// FindSorted returns members of the given age ordered by age descending,
// then username ascending with NULL usernames last.
func (q *MemberQueries) FindSorted(ctx context.Context, age int) ([]*entity.Member, error) {
	var members []*entity.Member
	err := predicate.Where(q.db.NewSelect().Model(&members), predicate.Eq("m.age", age)).
		OrderExpr("m.age DESC").
		OrderExpr("CASE WHEN m.username IS NULL THEN 1 ELSE 0 END").
		OrderExpr("m.username ASC").
		Scan(ctx)
	return members, err
}

// FindPage pages over all members, by username descending unless page
// carries orders.
func (q *MemberQueries) FindPage(ctx context.Context, page *types.PageRequest) (*types.Pagination[entity.Member], error) {
	var members []*entity.Member
	query := q.db.NewSelect().Model(&members)
	if page.HasOrders() {
		query = query.Order(page.GetOrders()...)
	} else {
		query = query.Order("m.username DESC")
	}
	total, err := query.
		Offset(page.GetOffset()).
		Limit(page.GetPageSize()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[entity.Member](page.GetPage(), page.GetPageSize())
	pagination.Total = total
	if members != nil {
		pagination.Items = members
	}
	return pagination, nil
}

func (q *MemberQueries) Stats(ctx context.Context) (*dto.AgeStats, error) {
	stats := new(dto.AgeStats)
	err := q.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("count(*) AS count").
		ColumnExpr("coalesce(sum(m.age), 0) AS sum").
		ColumnExpr("coalesce(avg(m.age), 0) AS avg").
		ColumnExpr("coalesce(max(m.age), 0) AS max").
		ColumnExpr("coalesce(min(m.age), 0) AS min").
		Scan(ctx, stats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// AverageAgeByTeam returns the average member age of every team that has
// members, ordered by team name.
func (q *MemberQueries) AverageAgeByTeam(ctx context.Context) ([]*dto.TeamAverageAge, error) {
	var rows []*dto.TeamAverageAge
	err := q.db.NewSelect().
		Model((*entity.Team)(nil)).
		ColumnExpr("t.name AS team_name").
		ColumnExpr("avg(m.age) AS avg_age").
		Join("JOIN member AS m ON m.team_id = t.team_id").
		GroupExpr("t.name").
		OrderExpr("t.name ASC").
		Scan(ctx, &rows)
	return rows, err
}

func (q *MemberQueries) FindByTeamName(ctx context.Context, teamName string) ([]*entity.Member, error) {
	var members []*entity.Member
	query := q.db.NewSelect().
		Model(&members).
		Join("JOIN team AS t ON t.team_id = m.team_id")
	err := predicate.Where(query, predicate.Eq("t.name", teamName)).
		Order("m.member_id ASC").
		Scan(ctx)
	return members, err
}

// FindNamedAfterTeam returns members whose username equals a team name,
// joining member and team without a relation.
func (q *MemberQueries) FindNamedAfterTeam(ctx context.Context) ([]*entity.Member, error) {
	var members []*entity.Member
	query := q.db.NewSelect().
		Model(&members).
		TableExpr("team AS t")
	err := predicate.Where(query, predicate.EqColumn("m.username", "t.name")).
		Order("m.member_id ASC").
		Scan(ctx)
	return members, err
}

// memberTeamOuterJoin selects every member with the team columns of the
// team matched by on. Unmatched members keep zero team columns.
func (q *MemberQueries) memberTeamOuterJoin(on string, args ...interface{}) *bun.SelectQuery {
	return q.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("m.member_id AS member_id").
		ColumnExpr("m.username AS username").
		ColumnExpr("m.age AS age").
		ColumnExpr("t.team_id AS team_id").
		ColumnExpr("t.name AS team_name").
		Join("LEFT JOIN team AS t ON "+on, args...).
		OrderExpr("m.member_id ASC")
}

// FindWithTeamNamed returns all members, filling team columns only for
// members of the team called teamName. The filter lives in the ON clause.
func (q *MemberQueries) FindWithTeamNamed(ctx context.Context, teamName string) ([]*dto.MemberTeamDto, error) {
	var rows []*dto.MemberTeamDto
	err := q.memberTeamOuterJoin("t.team_id = m.team_id AND t.name = ?", teamName).Scan(ctx, &rows)
	return rows, err
}

// FindWithTeamNamedAfterMember outer joins team on team name equal to
// username, with no relation between the tables.
func (q *MemberQueries) FindWithTeamNamedAfterMember(ctx context.Context) ([]*dto.MemberTeamDto, error) {
	var rows []*dto.MemberTeamDto
	err := q.memberTeamOuterJoin("m.username = t.name").Scan(ctx, &rows)
	return rows, err
}

// FindByUsernameWithTeam is FindByUsernameQuery with Team loaded.
func (q *MemberQueries) FindByUsernameWithTeam(ctx context.Context, username string) ([]*entity.Member, error) {
	var members []*entity.Member
	query := q.db.NewSelect().
		Model(&members).
		Relation("Team")
	err := predicate.Where(query, predicate.Eq("m.username", username)).
		Order("m.member_id ASC").
		Scan(ctx)
	return members, err
}

// FindOldest returns the members whose age is the maximum age.
func (q *MemberQueries) FindOldest(ctx context.Context) ([]*entity.Member, error) {
	return q.findByAgeSubquery(ctx, "m.age = (?)", "max(ms.age)")
}

// FindAtLeastAverageAge returns members at least as old as the average.
func (q *MemberQueries) FindAtLeastAverageAge(ctx context.Context) ([]*entity.Member, error) {
	return q.findByAgeSubquery(ctx, "m.age >= (?)", "avg(ms.age)")
}

func (q *MemberQueries) findByAgeSubquery(ctx context.Context, cond, aggregate string) ([]*entity.Member, error) {
	sub := q.db.NewSelect().
		TableExpr("member AS ms").
		ColumnExpr(aggregate)

	var members []*entity.Member
	err := predicate.Where(q.db.NewSelect().Model(&members), predicate.Raw(cond, sub)).
		Order("m.member_id ASC").
		Scan(ctx)
	return members, err
}

// AgeBrackets labels every member with an age range: 0~20, 21~30 or other.
func (q *MemberQueries) AgeBrackets(ctx context.Context) ([]*dto.MemberAgeBracket, error) {
	var rows []*dto.MemberAgeBracket
	err := q.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("m.username AS username").
		ColumnExpr(ageBracketCase+" AS bracket").
		OrderExpr("m.member_id ASC").
		Scan(ctx, &rows)
	return rows, err
}

func (q *MemberQueries) FindMemberDtos(ctx context.Context) ([]*dto.MemberDto, error) {
	var rows []*dto.MemberDto
	err := q.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("m.username AS username").
		ColumnExpr("m.age AS age").
		OrderExpr("m.member_id ASC").
		Scan(ctx, &rows)
	return rows, err
}

// FindUserDtos projects username as name and the maximum member age as age.
func (q *MemberQueries) FindUserDtos(ctx context.Context) ([]*dto.UserDto, error) {
	maxAge := q.db.NewSelect().
		TableExpr("member AS ms").
		ColumnExpr("max(ms.age)")

	var rows []*dto.UserDto
	err := q.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("m.username AS name").
		ColumnExpr("(?) AS age", maxAge).
		OrderExpr("m.member_id ASC").
		Scan(ctx, &rows)
	return rows, err
}

// UsernameWithAge returns "<username>_<age>" for members called username.
func (q *MemberQueries) UsernameWithAge(ctx context.Context, username string) ([]string, error) {
	expr := "m.username || '_' || m.age"
	if q.db.Dialect().Name() == dialect.MySQL {
		expr = "CONCAT(m.username, '_', m.age)"
	}
	var values []string
	err := predicate.Where(
		q.db.NewSelect().Model((*entity.Member)(nil)).ColumnExpr(expr),
		predicate.Eq("m.username", username),
	).OrderExpr("m.member_id ASC").Scan(ctx, &values)
	return values, err
}

// ReplacedUsernames returns every username with "member" replaced by "M".
func (q *MemberQueries) ReplacedUsernames(ctx context.Context) ([]string, error) {
	var values []string
	err := q.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("replace(m.username, ?, ?)", "member", "M").
		OrderExpr("m.member_id ASC").
		Scan(ctx, &values)
	return values, err
}

// FindLowercaseUsernames returns usernames already in lower case.
func (q *MemberQueries) FindLowercaseUsernames(ctx context.Context) ([]string, error) {
	var values []string
	query := q.db.NewSelect().
		Model((*entity.Member)(nil)).
		Column("m.username")
	err := predicate.Where(query, predicate.Raw("m.username = lower(m.username)")).
		OrderExpr("m.member_id ASC").
		Scan(ctx, &values)
	return values, err
}

// SearchMembers filters by username and age, each only when not nil.
func (q *MemberQueries) SearchMembers(ctx context.Context, username *string, age *int) ([]*entity.Member, error) {
	builder := predicate.NewBuilder().
		And(predicate.EqIfPresent("m.username", username)).
		And(predicate.EqIfPresent("m.age", age))

	var members []*entity.Member
	err := predicate.Where(q.db.NewSelect().Model(&members), builder.Expr()).
		Order("m.member_id ASC").
		Scan(ctx)
	return members, err
}

// BulkRenameYoungerThan sets username on every member younger than age.
func (q *MemberQueries) BulkRenameYoungerThan(ctx context.Context, age int, username string) (int64, error) {
	query := q.db.NewUpdate().
		Model((*entity.Member)(nil)).
		Set("username = ?", username)
	return rowsAffected(predicate.Where(query, predicate.Lt("age", age)).Exec(ctx))
}

func (q *MemberQueries) BulkAddAge(ctx context.Context, delta int) (int64, error) {
	query := q.db.NewUpdate().
		Model((*entity.Member)(nil)).
		Set("age = age + ?", delta).
		Where("1 = 1")
	return rowsAffected(query.Exec(ctx))
}

func (q *MemberQueries) BulkDeleteOlderThan(ctx context.Context, age int) (int64, error) {
	query := q.db.NewDelete().Model((*entity.Member)(nil))
	return rowsAffected(predicate.Where(query, predicate.Gt("age", age)).Exec(ctx))
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
