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
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tomoncle/querystudy/database"
	"github.com/tomoncle/querystudy/dto"
	"github.com/tomoncle/querystudy/entity"
	"github.com/tomoncle/querystudy/repository"
	"github.com/tomoncle/querystudy/types"
)

// MemberService is the part of querystudy.MemberService the handlers use.
type MemberService interface {
	Get(ctx context.Context, id int64) (*entity.Member, error)
	Search(ctx context.Context, cond *dto.MemberSearchCondition) ([]*dto.MemberTeamDto, error)
	SearchPageSimple(ctx context.Context, cond *dto.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error)
	SearchPageComplex(ctx context.Context, cond *dto.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error)
	TeamMemberCounts(ctx context.Context) ([]*dto.TeamMemberCount, error)
	RegisterTeamWithMembers(ctx context.Context, team *entity.Team, members ...*entity.Member) error
}

// HealthChecker reports database health, e.g. database.GetHealthStatus.
type HealthChecker func(ctx context.Context) *database.HealthStatus

type Handler struct {
	members MemberService
	health  HealthChecker
}

func NewHandler(members MemberService, health HealthChecker) *Handler {
	return &Handler{members: members, health: health}
}

// PageResponse is a page of items with navigation metadata.
type PageResponse[T any] struct {
	*types.Pagination[T]
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

func newPageResponse[T any](p *types.Pagination[T]) PageResponse[T] {
	return PageResponse[T]{Pagination: p, TotalPages: p.TotalPages(), HasNext: p.HasNext()}
}

func (h *Handler) Health(c *gin.Context) {
	status := h.health(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *Handler) GetMember(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		h.badRequest(c, "id must be a positive integer")
		return
	}
	member, err := h.members.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *Handler) SearchMembers(c *gin.Context) {
	cond, ok := h.bindCondition(c)
	if !ok {
		return
	}
	rows, err := h.members.Search(c.Request.Context(), cond)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if rows == nil {
		rows = []*dto.MemberTeamDto{}
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) SearchMembersPageSimple(c *gin.Context) {
	h.searchPage(c, h.members.SearchPageSimple)
}

func (h *Handler) SearchMembersPageComplex(c *gin.Context) {
	h.searchPage(c, h.members.SearchPageComplex)
}

type pageSearch func(context.Context, *dto.MemberSearchCondition, *types.PageRequest) (*types.Pagination[dto.MemberTeamDto], error)

func (h *Handler) searchPage(c *gin.Context, search pageSearch) {
	cond, ok := h.bindCondition(c)
	if !ok {
		return
	}
	page, err := bindPageRequest(c)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	result, err := search(c.Request.Context(), cond, page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPageResponse(result))
}

func (h *Handler) TeamMemberCounts(c *gin.Context) {
	counts, err := h.members.TeamMemberCounts(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if counts == nil {
		counts = []*dto.TeamMemberCount{}
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) RegisterTeam(c *gin.Context) {
	var req dto.RegisterTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(c, err)
		return
	}
	team, members := req.Entities()
	if err := h.members.RegisterTeamWithMembers(c.Request.Context(), team, members...); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewRegisteredTeam(team, members))
}

func (h *Handler) bindCondition(c *gin.Context) (*dto.MemberSearchCondition, bool) {
	var cond dto.MemberSearchCondition
	if err := c.ShouldBindQuery(&cond); err != nil {
		h.badRequest(c, "invalid search parameters")
		return nil, false
	}
	return &cond, true
}

// bindPageRequest reads page (1-based), size and repeated sort=field,dir
// query parameters.
func bindPageRequest(c *gin.Context) (*types.PageRequest, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return nil, err
	}
	size, err := queryInt(c, "size", types.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	orders, err := repository.ParseMemberSort(c.QueryArray("sort")...)
	if err != nil {
		return nil, err
	}
	return types.NewPageRequestWithOrders(page, size, orders), nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{key: key, value: raw}
	}
	return n, nil
}

type paramError struct {
	key, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.key + ": " + strconv.Quote(e.value)
}
