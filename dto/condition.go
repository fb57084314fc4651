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
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidCondition is wrapped by every validation failure of a search
// condition.
var ErrInvalidCondition = errors.New("invalid search condition")

// MemberSearchCondition holds optional member search filters. Blank strings
// and nil bounds mean the filter is not applied.
type MemberSearchCondition struct {
	Username string `form:"username" json:"username"`
	TeamName string `form:"teamName" json:"teamName"`
	AgeGoe   *int   `form:"ageGoe" json:"ageGoe" validate:"omitempty,gte=0"`
	AgeLoe   *int   `form:"ageLoe" json:"ageLoe" validate:"omitempty,gte=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func conditionValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterStructValidation(ageRangeValidation, MemberSearchCondition{})
	})
	return validate
}

func ageRangeValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(MemberSearchCondition)
	if c.AgeGoe != nil && c.AgeLoe != nil && *c.AgeGoe > *c.AgeLoe {
		sl.ReportError(c.AgeGoe, "AgeGoe", "ageGoe", "ltefield", "AgeLoe")
	}
}

// Validate checks the age bounds. A nil condition is valid.
func (c *MemberSearchCondition) Validate() error {
	if c == nil {
		return nil
	}
	err := conditionValidator().Struct(c)
	if err == nil {
		return nil
	}
	return describeValidation(ErrInvalidCondition, err)
}

// describeValidation wraps sentinel with one readable message per failed
// field.
func describeValidation(sentinel error, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param()))
		case "ltefield":
			msgs = append(msgs, fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", sentinel, strings.Join(msgs, "; "))
}

// IsEmpty reports whether no filter is set.
func (c *MemberSearchCondition) IsEmpty() bool {
	return c == nil || (strings.TrimSpace(c.Username) == "" &&
		strings.TrimSpace(c.TeamName) == "" &&
		c.AgeGoe == nil && c.AgeLoe == nil)
}
