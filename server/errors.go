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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tomoncle/querystudy/database"
	"github.com/tomoncle/querystudy/dto"
	"github.com/tomoncle/querystudy/repository"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error Error `json:"error"`
}

// writeError maps not-found to 404, invalid input and constraint violations
// to 400, and duplicate keys and dangling references to 409.
func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: Error{Code: "NOT_FOUND", Message: err.Error()}})
		return
	}
	if errors.Is(err, dto.ErrInvalidCondition) || errors.Is(err, dto.ErrInvalidRequest) {
		h.badRequest(c, err.Error())
		return
	}
	_, kind := database.IsSqlError(err)
	switch kind {
	case database.DuplicateKeyErr, database.ForeignKeyViolationErr:
		c.JSON(http.StatusConflict, ErrorResponse{Error: Error{Code: "CONFLICT", Message: kind.String()}})
	case database.NotNullViolationErr, database.CheckConstraintViolationErr:
		h.badRequest(c, kind.String())
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: Error{Code: "INTERNAL_ERROR", Message: "internal server error"},
		})
	}
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: Error{Code: "BAD_REQUEST", Message: msg}})
}
