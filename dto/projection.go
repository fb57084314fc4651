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

// MemberTeamDto is a flat member and team row. Team columns are zero for
// members without a team.
type MemberTeamDto struct {
	MemberID int64  `bun:"member_id" json:"memberId"`
	Username string `bun:"username" json:"username"`
	Age      int    `bun:"age" json:"age"`
	TeamID   int64  `bun:"team_id" json:"teamId"`
	TeamName string `bun:"team_name" json:"teamName"`
}

type MemberDto struct {
	Username string `bun:"username" json:"username"`
	Age      int    `bun:"age" json:"age"`
}

// UserDto is filled from aliased columns: name and age.
type UserDto struct {
	Name string `bun:"name" json:"name"`
	Age  int    `bun:"age" json:"age"`
}

// AgeStats aggregates member ages.
type AgeStats struct {
	Count int64   `bun:"count" json:"count"`
	Sum   int64   `bun:"sum" json:"sum"`
	Avg   float64 `bun:"avg" json:"avg"`
	Max   int     `bun:"max" json:"max"`
	Min   int     `bun:"min" json:"min"`
}

type TeamAverageAge struct {
	TeamName string  `bun:"team_name" json:"teamName"`
	AvgAge   float64 `bun:"avg_age" json:"avgAge"`
}

// MemberAgeBracket labels a member by age range.
type MemberAgeBracket struct {
	Username string `bun:"username" json:"username"`
	Bracket  string `bun:"bracket" json:"bracket"`
}

// TeamMemberCount is the number of members per team.
type TeamMemberCount struct {
	TeamID      int64  `bun:"team_id" json:"teamId"`
	TeamName    string `bun:"team_name" json:"teamName"`
	MemberCount int    `bun:"member_count" json:"memberCount"`
}
