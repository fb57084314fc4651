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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTeamRequest_Validate(t *testing.T) {
	valid := &RegisterTeamRequest{Name: "teamA", Members: []NewMemberRequest{{Username: "member1", Age: 10}}}
	require.NoError(t, valid.Validate())

	err := (&RegisterTeamRequest{}).Validate()
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorContains(t, err, "Name is required")

	err = (&RegisterTeamRequest{Name: "teamA", Members: []NewMemberRequest{{Username: "x", Age: -1}}}).Validate()
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorContains(t, err, "Members[0].Age must be at least 0")

	var missing *RegisterTeamRequest
	assert.ErrorIs(t, missing.Validate(), ErrInvalidRequest)
}

func TestRegisterTeamRequest_Entities(t *testing.T) {
	req := &RegisterTeamRequest{Name: "teamA", Members: []NewMemberRequest{
		{ID: 7, Username: "member1", Age: 10},
		{Username: "member2", Age: 20},
	}}
	team, members := req.Entities()
	assert.Equal(t, "teamA", team.Name)
	require.Len(t, members, 2)
	assert.EqualValues(t, 7, members[0].ID)
	assert.Nil(t, members[1].Team)

	team.ID = 3
	out := NewRegisteredTeam(team, members)
	assert.EqualValues(t, 3, out.TeamID)
	assert.Equal(t, "teamA", out.Members[1].TeamName)
	assert.Equal(t, 20, out.Members[1].Age)
}
