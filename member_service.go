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

package querystudy

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/tomoncle/querystudy/dto"
	"github.com/tomoncle/querystudy/entity"
	"github.com/tomoncle/querystudy/repository"
	"github.com/tomoncle/querystudy/types"
	"github.com/tomoncle/querystudy/utils"
)

// MemberService validates search input and runs member and team use cases.
type MemberService struct {
	db      *bun.DB
	members repository.MemberRepository
	queries *repository.MemberQueries
	teams   repository.TeamRepository
	log     *logrus.Logger
}

func NewMemberService(db *bun.DB) *MemberService {
	return &MemberService{
		db:      db,
		members: repository.NewMemberRepository(db),
		queries: repository.NewMemberQueries(db),
		teams:   repository.NewTeamRepository(db),
		log:     utils.NewLogger("SERVICE"),
	}
}

func (s *MemberService) Members() repository.MemberRepository { return s.members }

func (s *MemberService) Queries() *repository.MemberQueries { return s.queries }

func (s *MemberService) Teams() repository.TeamRepository { return s.teams }

func (s *MemberService) Get(ctx context.Context, id int64) (*entity.Member, error) {
	return s.members.FindByID(ctx, id)
}

// Search returns every member matching cond. Errors wrap
// dto.ErrInvalidCondition when cond is invalid.
func (s *MemberService) Search(ctx context.Context, cond *dto.MemberSearchCondition) ([]*dto.MemberTeamDto, error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	return s.members.Search(ctx, cond)
}

func (s *MemberService) SearchPageSimple(ctx context.Context, cond *dto.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	return s.members.SearchPageSimple(ctx, cond, page)
}

func (s *MemberService) SearchPageComplex(ctx context.Context, cond *dto.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	return s.members.SearchPageComplex(ctx, cond, page)
}

func (s *MemberService) TeamMemberCounts(ctx context.Context) ([]*dto.TeamMemberCount, error) {
	return s.teams.MemberCount(ctx)
}

// RegisterTeamWithMembers inserts team and joins each member to it in one
// transaction. Nothing is stored when any insert fails, and team and members
// are put back to the state they had before the call.
func (s *MemberService) RegisterTeamWithMembers(ctx context.Context, team *entity.Team, members ...*entity.Member) error {
	snapshot := snapshotRegistration(team, members)
	for _, m := range members {
		m.ChangeTeam(team)
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.teams.CreateWithTx(ctx, &tx, team); err != nil {
			return fmt.Errorf("insert team %q: %w", team.Name, err)
		}
		for _, m := range members {
			id := team.ID
			m.TeamID = &id
		}
		if err := s.members.CreateWithTx(ctx, &tx, members...); err != nil {
			return fmt.Errorf("insert members of team %q: %w", team.Name, err)
		}
		return nil
	})
	if err != nil {
		snapshot.restore()
		s.log.WithError(err).WithField("team", team.Name).Error("team registration rolled back")
		return err
	}
	s.log.WithFields(logrus.Fields{"team_id": team.ID, "members": len(members)}).Info("team registered")
	return nil
}

type memberSnapshot struct {
	member *entity.Member
	id     int64
	team   *entity.Team
	teamID *int64
}

type registrationSnapshot struct {
	team        *entity.Team
	teamID      int64
	teamMembers []*entity.Member
	members     []memberSnapshot
}

func snapshotRegistration(team *entity.Team, members []*entity.Member) *registrationSnapshot {
	snap := &registrationSnapshot{
		team:        team,
		teamID:      team.ID,
		teamMembers: append([]*entity.Member(nil), team.Members...),
		members:     make([]memberSnapshot, len(members)),
	}
	for i, m := range members {
		snap.members[i] = memberSnapshot{member: m, id: m.ID, team: m.Team, teamID: m.TeamID}
	}
	return snap
}

func (snap *registrationSnapshot) restore() {
	snap.team.ID = snap.teamID
	snap.team.Members = snap.teamMembers
	for _, ms := range snap.members {
		if ms.team != snap.team {
			ms.member.ChangeTeam(ms.team)
		}
		ms.member.ID = ms.id
		ms.member.TeamID = ms.teamID
	}
}
