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

import "github.com/uptrace/bun"

// Team groups members. A team has many members.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:t"`

	ID      int64     `bun:"team_id,pk,autoincrement" json:"id"`
	Name    string    `bun:"name,notnull" json:"name"`
	Members []*Member `bun:"rel:has-many,join:team_id=team_id" json:"members,omitempty"`
}

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) String() string {
	return "Team(id=" + itoa(t.ID) + ", name=" + t.Name + ")"
}
