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

package dto

import (
	"errors"

	"github.com/tomoncle/querystudy/entity"
)

// ErrInvalidRequest is wrapped by every validation failure of a write request.
var ErrInvalidRequest = errors.New("invalid request")

// NewMemberRequest describes a member to create. ID is optional and keeps
// its value when importing existing keys.
type NewMemberRequest struct {
	ID       int64  `json:"id" validate:"gte=0"`
	Username string `json:"username"`
	Age      int    `json:"age" validate:"gte=0"`
}

// RegisterTeamRequest creates a team together with its members.
type RegisterTeamRequest struct {
	Name    string             `json:"name" validate:"required"`
	Members []NewMemberRequest `json:"members" validate:"dive"`
}

func (r *RegisterTeamRequest) Validate() error {
	if r == nil {
		return ErrInvalidRequest
	}
	if err := conditionValidator().Struct(r); err != nil {
		return describeValidation(ErrInvalidRequest, err)
	}
	return nil
}

// Entities builds the team and its members, not yet joined.
func (r *RegisterTeamRequest) Entities() (*entity.Team, []*entity.Member) {
	members := make([]*entity.Member, len(r.Members))
	for i, m := range r.Members {
		members[i] = entity.NewMember(m.Username, m.Age, nil)
		members[i].ID = m.ID
	}
	return entity.NewTeam(r.Name), members
}

// RegisteredTeam is the response to a team registration.
type RegisteredTeam struct {
	TeamID  int64            `json:"teamId"`
	Name    string           `json:"name"`
	Members []*MemberTeamDto `json:"members"`
}

func NewRegisteredTeam(team *entity.Team, members []*entity.Member) *RegisteredTeam {
	out := &RegisteredTeam{TeamID: team.ID, Name: team.Name, Members: make([]*MemberTeamDto, len(members))}
	for i, m := range members {
		out.Members[i] = &MemberTeamDto{
			MemberID: m.ID,
			Username: m.Username,
			Age:      m.Age,
			TeamID:   team.ID,
			TeamName: team.Name,
		}
	}
	return out
}
