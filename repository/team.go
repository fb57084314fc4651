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
	"errors"
	"fmt"

	"github.com/tomoncle/querystudy/dto"
	"github.com/tomoncle/querystudy/entity"
	"github.com/tomoncle/querystudy/predicate"
	"github.com/uptrace/bun"
)

type TeamRepository interface {
	Repository[entity.Team]

	Save(ctx context.Context, team *entity.Team) error
	FindByID(ctx context.Context, id int64) (*entity.Team, error)
	// FindByName returns the first team with name, or ErrNotFound.
	FindByName(ctx context.Context, name string) (*entity.Team, error)
	// FindAll loads every team with its members ordered by ID.
	FindAll(ctx context.Context) ([]*entity.Team, error)
	MemberCount(ctx context.Context) ([]*dto.TeamMemberCount, error)
}

type teamRepository struct {
	Repository[entity.Team]
	db *bun.DB
}

func NewTeamRepository(db *bun.DB) TeamRepository {
	return &teamRepository{
		Repository: NewRepository[entity.Team](db),
		db:         db,
	}
}

func (r *teamRepository) Save(ctx context.Context, team *entity.Team) error {
	return saveTeam(ctx, r.db, team)
}

// saveTeam inserts team and propagates its new ID to members already joined.
func saveTeam(ctx context.Context, db bun.IDB, team *entity.Team) error {
	if _, err := db.NewInsert().Model(team).Exec(ctx); err != nil {
		return fmt.Errorf("insert team %q: %w", team.Name, err)
	}
	for _, m := range team.Members {
		id := team.ID
		m.TeamID = &id
	}
	return nil
}

func (r *teamRepository) FindByID(ctx context.Context, id int64) (*entity.Team, error) {
	return r.GetOne(ctx, id)
}

func (r *teamRepository) FindByName(ctx context.Context, name string) (*entity.Team, error) {
	team := new(entity.Team)
	err := predicate.Where(r.db.NewSelect().Model(team), predicate.Eq("t.name", name)).
		Order("t.team_id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (r *teamRepository) FindAll(ctx context.Context) ([]*entity.Team, error) {
	var teams []*entity.Team
	err := r.db.NewSelect().
		Model(&teams).
		Relation("Members", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("m.member_id ASC")
		}).
		Order("t.team_id ASC").
		Scan(ctx)
	return teams, err
}

// MemberCount counts members per team, including teams without members.
func (r *teamRepository) MemberCount(ctx context.Context) ([]*dto.TeamMemberCount, error) {
	var rows []*dto.TeamMemberCount
	err := r.db.NewSelect().
		Model((*entity.Team)(nil)).
		ColumnExpr("t.team_id AS team_id").
		ColumnExpr("t.name AS team_name").
		ColumnExpr("count(m.member_id) AS member_count").
		Join("LEFT JOIN member AS m ON m.team_id = t.team_id").
		GroupExpr("t.team_id, t.name").
		OrderExpr("t.team_id ASC").
		Scan(ctx, &rows)
	return rows, err
}
