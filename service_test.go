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

package querystudy_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/querystudy"
	"github.com/tomoncle/querystudy/database"
	"github.com/tomoncle/querystudy/dto"
	"github.com/tomoncle/querystudy/entity"
	"github.com/tomoncle/querystudy/repository"
	"github.com/tomoncle/querystudy/types"
)

func testConfig(t *testing.T) *database.Config {
	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.InMemory = true
	cfg.ConnectionConfig.DBName = strings.ReplaceAll(t.Name(), "/", "_")
	cfg.DataInitConfig.Filepath = ""
	return cfg
}

func openDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := database.InitDB(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })
	return db
}

func intPtr(v int) *int { return &v }

func TestService_GlobalDatabase(t *testing.T) {
	svc := querystudy.NewService[entity.Team]()
	openDB(t)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, entity.NewTeam("teamA"), entity.NewTeam("teamB")))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	got, err := svc.Get(ctx, all[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "teamB", got.Name)

	page, err := svc.Page(ctx, types.NewDefaultPageRequest(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)

	listed, err := svc.List(ctx, types.NewQueryFilter("t.name = ?", "teamA"))
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, svc.Delete(ctx, all[0].ID))
	_, err = svc.Get(ctx, all[0].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := svc.SelectBuilder().Model((*entity.Team)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_Transaction(t *testing.T) {
	svc := querystudy.NewServiceWithDB[entity.Team](openDB(t))
	ctx := context.Background()

	err := svc.Transaction(ctx, func(ctx context.Context, tx *bun.Tx) error {
		return svc.SaveWithTx(ctx, tx, entity.NewTeam("kept"))
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = svc.Transaction(ctx, func(ctx context.Context, tx *bun.Tx) error {
		if err := svc.SaveWithTx(ctx, tx, entity.NewTeam("dropped")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "kept", all[0].Name)
}

func TestMemberService_RegisterTeamWithMembers(t *testing.T) {
	db := openDB(t)
	svc := querystudy.NewMemberService(db)
	ctx := context.Background()

	team := entity.NewTeam("teamA")
	m1 := entity.NewMember("member1", 10, nil)
	m2 := entity.NewMember("member2", 20, nil)
	require.NoError(t, svc.RegisterTeamWithMembers(ctx, team, m1, m2))
	require.NotZero(t, team.ID)

	rows, err := svc.Search(ctx, &dto.MemberSearchCondition{TeamName: "teamA"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, team.ID, rows[0].TeamID)

	teamB := entity.NewTeam("teamB")
	clash := entity.NewMember("clash", 30, nil)
	clash.ID = m1.ID
	fresh := entity.NewMember("fresh", 5, nil)
	err = svc.RegisterTeamWithMembers(ctx, teamB, fresh, clash)
	require.Error(t, err)
	assert.True(t, database.IsDuplicateKey(err))

	assert.Zero(t, teamB.ID)
	assert.Empty(t, teamB.Members)
	assert.Zero(t, fresh.ID)
	assert.Nil(t, fresh.Team)
	assert.Nil(t, fresh.TeamID)
	assert.Equal(t, m1.ID, clash.ID)
	assert.Nil(t, clash.Team)
	assert.Nil(t, clash.TeamID)

	// a member moved from a persisted team goes back to it
	err = svc.RegisterTeamWithMembers(ctx, entity.NewTeam("teamC"), m2, clash)
	require.Error(t, err)
	assert.Same(t, team, m2.Team)
	require.NotNil(t, m2.TeamID)
	assert.Equal(t, team.ID, *m2.TeamID)
	assert.Contains(t, team.Members, m2)

	_, err = svc.Teams().FindByName(ctx, "teamB")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemberService_RejectsInvalidCondition(t *testing.T) {
	svc := querystudy.NewMemberService(openDB(t))
	ctx := context.Background()
	bad := &dto.MemberSearchCondition{AgeGoe: intPtr(40), AgeLoe: intPtr(30)}

	_, err := svc.Search(ctx, bad)
	assert.ErrorIs(t, err, dto.ErrInvalidCondition)

	_, err = svc.SearchPageSimple(ctx, bad, types.NewDefaultPageRequest(1, 10))
	assert.ErrorIs(t, err, dto.ErrInvalidCondition)

	_, err = svc.SearchPageComplex(ctx, &dto.MemberSearchCondition{AgeLoe: intPtr(-1)}, types.NewDefaultPageRequest(1, 10))
	assert.ErrorIs(t, err, dto.ErrInvalidCondition)

	page, err := svc.SearchPageComplex(ctx, nil, types.NewDefaultPageRequest(1, 10))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
