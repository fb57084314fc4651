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

package entity

import (
	"strconv"

	"github.com/uptrace/bun"
)

// Member belongs to at most one team. An empty Username is stored as NULL.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64  `bun:"member_id,pk,autoincrement" json:"id"`
	Username string `bun:"username,nullzero" json:"username"`
	Age      int    `bun:"age,notnull" json:"age"`
	TeamID   *int64 `bun:"team_id" json:"team_id,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=team_id" json:"team,omitempty"`
}

// NewMember builds a member and, when team is not nil, joins it to team.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team on both sides of the association.
// TeamID is only set once team has been persisted.
func (m *Member) ChangeTeam(team *Team) {
	if m.Team != nil && m.Team != team {
		m.Team.removeMember(m)
	}
	m.Team = team
	if team == nil {
		m.TeamID = nil
		return
	}
	if team.ID != 0 {
		id := team.ID
		m.TeamID = &id
	}
	for _, existing := range team.Members {
		if existing == m {
			return
		}
	}
	team.Members = append(team.Members, m)
}

func (m *Member) String() string {
	return "Member(id=" + itoa(m.ID) + ", username=" + m.Username + ", age=" + strconv.Itoa(m.Age) + ")"
}

func (t *Team) removeMember(m *Member) {
	for i, existing := range t.Members {
		if existing == m {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return
		}
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
