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

package server

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func NewRouter(h *Handler, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		AccessLogger(log),
		Recovery(log),
	)

	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	v1.GET("/members", h.SearchMembers)
	v1.GET("/members/:id", h.GetMember)
	v1.GET("/teams", h.TeamMemberCounts)
	v1.POST("/teams", h.RegisterTeam)

	r.GET("/v2/members", h.SearchMembersPageSimple)
	r.GET("/v3/members", h.SearchMembersPageComplex)

	return r
}
