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
	"fmt"

	"github.com/tomoncle/querystudy/dto"
	"github.com/tomoncle/querystudy/entity"
	"github.com/tomoncle/querystudy/predicate"
	"github.com/tomoncle/querystudy/types"
	"github.com/uptrace/bun"
)

const (
	findAllMembersSQL = "SELECT m.member_id, m.username, m.age, m.team_id FROM member AS m ORDER BY m.member_id"

	findMembersByUsernameSQL = "SELECT m.member_id, m.username, m.age, m.team_id FROM member AS m WHERE m.username = ? ORDER BY m.member_id"

	teamJoin = "LEFT JOIN team AS t ON t.team_id = m.team_id"
)

// MemberSearchRepository runs member searches built from optional filters.
// Filters without a value are left out of the query.
type MemberSearchRepository interface {
	SearchByBuilder(ctx context.Context, cond *dto.MemberSearchCondition) ([]*dto.MemberTeamDto, error)
	Search(ctx context.Context, cond *dto.MemberSearchCondition) ([]*dto.MemberTeamDto, error)
	// SearchPageSimple fetches a page and the total row count together.
	SearchPageSimple(ctx context.Context, cond *dto.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error)
	// SearchPageComplex fetches a page and counts rows only when the page
	// itself does not determine the total.
	SearchPageComplex(ctx context.Context, cond *dto.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error)
}

// MemberRepository stores and looks up members.
type MemberRepository interface {
	Repository[entity.Member]
	MemberSearchRepository

	Save(ctx context.Context, member *entity.Member) error
	FindByID(ctx context.Context, id int64) (*entity.Member, error)
	FindAll(ctx context.Context) ([]*entity.Member, error)
	FindAllQuery(ctx context.Context) ([]*entity.Member, error)
	FindByUsername(ctx context.Context, username string) ([]*entity.Member, error)
	FindByUsernameQuery(ctx context.Context, username string) ([]*entity.Member, error)
}

type memberRepository struct {
	Repository[entity.Member]
	db *bun.DB
}

func NewMemberRepository(db *bun.DB) MemberRepository {
	return &memberRepository{
		Repository: NewRepository[entity.Member](db),
		db:         db,
	}
}

// Save inserts member and sets its ID. A member joined to a saved team
// before the team had an ID picks the ID up here.
func (r *memberRepository) Save(ctx context.Context, member *entity.Member) error {
	return saveMember(ctx, r.db, member)
}

func saveMember(ctx context.Context, db bun.IDB, member *entity.Member) error {
	if member.Team != nil && member.TeamID == nil && member.Team.ID != 0 {
		id := member.Team.ID
		member.TeamID = &id
	}
	if _, err := db.NewInsert().Model(member).Exec(ctx); err != nil {
		return fmt.Errorf("insert member %q: %w", member.Username, err)
	}
	return nil
}

func (r *memberRepository) FindByID(ctx context.Context, id int64) (*entity.Member, error) {
	return r.GetOne(ctx, id)
}

func (r *memberRepository) FindAll(ctx context.Context) ([]*entity.Member, error) {
	var members []*entity.Member
	if err := r.db.NewRaw(findAllMembersSQL).Scan(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) FindAllQuery(ctx context.Context) ([]*entity.Member, error) {
	var members []*entity.Member
	err := r.db.NewSelect().
		Model(&members).
		Order("m.member_id ASC").
		Scan(ctx)
	return members, err
}

func (r *memberRepository) FindByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	var members []*entity.Member
	if err := r.db.NewRaw(findMembersByUsernameSQL, username).Scan(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) FindByUsernameQuery(ctx context.Context, username string) ([]*entity.Member, error) {
	var members []*entity.Member
	q := r.db.NewSelect().Model(&members)
	err := predicate.Where(q, predicate.Eq("m.username", username)).
		Order("m.member_id ASC").
		Scan(ctx)
	return members, err
}

// memberTeamQuery selects MemberTeamDto columns from member LEFT JOIN team.
func (r *memberRepository) memberTeamQuery() *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("m.member_id AS member_id").
		ColumnExpr("m.username AS username").
		ColumnExpr("m.age AS age").
		ColumnExpr("t.team_id AS team_id").
		ColumnExpr("t.name AS team_name").
		Join(teamJoin)
}

func (r *memberRepository) SearchByBuilder(ctx context.Context, cond *dto.MemberSearchCondition) ([]*dto.MemberTeamDto, error) {
	builder := predicate.NewBuilder()
	if cond != nil {
		builder.
			And(predicate.EqIfText("m.username", cond.Username)).
			And(predicate.EqIfText("t.name", cond.TeamName)).
			And(predicate.GoeIfPresent("m.age", cond.AgeGoe)).
			And(predicate.LoeIfPresent("m.age", cond.AgeLoe))
	}

	var rows []*dto.MemberTeamDto
	err := predicate.Where(r.memberTeamQuery(), builder.Expr()).
		Order("m.member_id ASC").
		Scan(ctx, &rows)
	return rows, err
}

func (r *memberRepository) Search(ctx context.Context, cond *dto.MemberSearchCondition) ([]*dto.MemberTeamDto, error) {
	var rows []*dto.MemberTeamDto
	err := predicate.Where(r.memberTeamQuery(), searchExprs(cond)...).
		Order("m.member_id ASC").
		Scan(ctx, &rows)
	return rows, err
}

func (r *memberRepository) SearchPageSimple(ctx context.Context, cond *dto.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error) {
	var rows []*dto.MemberTeamDto
	q := predicate.Where(r.memberTeamQuery(), searchExprs(cond)...)
	total, err := orderMemberPage(q, page).
		Offset(page.GetOffset()).
		Limit(page.GetPageSize()).
		ScanAndCount(ctx, &rows)
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[dto.MemberTeamDto](page.GetPage(), page.GetPageSize())
	pagination.Total = total
	if rows != nil {
		pagination.Items = rows
	}
	return pagination, nil
}

func (r *memberRepository) SearchPageComplex(ctx context.Context, cond *dto.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error) {
	exprs := searchExprs(cond)

	var rows []*dto.MemberTeamDto
	err := orderMemberPage(predicate.Where(r.memberTeamQuery(), exprs...), page).
		Offset(page.GetOffset()).
		Limit(page.GetPageSize()).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	countQuery := predicate.Where(
		r.db.NewSelect().Model((*entity.Member)(nil)).Join(teamJoin),
		exprs...,
	)
	return types.ResolvePage(rows, page, func() (int, error) {
		return countQuery.Count(ctx)
	})
}

// searchExprs maps a condition to its predicates; absent values yield nil.
func searchExprs(cond *dto.MemberSearchCondition) []*predicate.Expr {
	if cond == nil {
		return nil
	}
	return []*predicate.Expr{
		predicate.EqIfText("m.username", cond.Username),
		predicate.EqIfText("t.name", cond.TeamName),
		predicate.GoeIfPresent("m.age", cond.AgeGoe),
		predicate.LoeIfPresent("m.age", cond.AgeLoe),
	}
}

func orderMemberPage(q *bun.SelectQuery, page *types.PageRequest) *bun.SelectQuery {
	if page.HasOrders() {
		return q.Order(page.GetOrders()...)
	}
	return q.Order("m.member_id ASC")
}
