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

package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// ApplyEnvOverrides replaces connection settings with the DB_* environment
// variables named in the envconfig tags of ConnectionConfig. Unset
// variables leave the current value.
func ApplyEnvOverrides(cfg *ConnectionConfig) error {
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("load database environment: %w", err)
	}
	return nil
}
