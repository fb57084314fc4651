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

package repository

import (
	"fmt"
	"strings"
)

// memberSortColumns maps public sort keys of member searches to columns of
// the member LEFT JOIN team query.
var memberSortColumns = map[string]string{
	"id":       "m.member_id",
	"username": "m.username",
	"age":      "m.age",
	"teamName": "t.name",
}

// ParseMemberSort turns "field" or "field,dir" specs into ORDER BY terms.
// Unknown fields and directions are rejected.
func ParseMemberSort(specs ...string) ([]string, error) {
	orders := make([]string, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		field, dir, _ := strings.Cut(spec, ",")
		column, ok := memberSortColumns[strings.TrimSpace(field)]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field: %q", field)
		}
		switch d := strings.ToUpper(strings.TrimSpace(dir)); d {
		case "", "ASC":
			orders = append(orders, column+" ASC")
		case "DESC":
			orders = append(orders, column+" DESC")
		default:
			return nil, fmt.Errorf("unsupported sort direction: %q", dir)
		}
	}
	return orders, nil
}
