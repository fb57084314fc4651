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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/querystudy/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

const (
	defaultKeyColumn = "id"
	keyCondition     = "?TableAlias.? = ?"
)

type baseRepositoryImpl[T any] struct {
	db        *bun.DB
	keyColumn string
}

// NewRepository returns a generic repository backed by db. The key column is
// the model's single primary key, or "id" when it cannot be determined.
func NewRepository[T any](db *bun.DB) Repository[T] {
	return &baseRepositoryImpl[T]{db: db, keyColumn: primaryKeyColumn[T](db)}
}

// NewRepositoryWithKey is NewRepository with an explicit key column.
func NewRepositoryWithKey[T any](db *bun.DB, keyColumn string) Repository[T] {
	return &baseRepositoryImpl[T]{db: db, keyColumn: keyColumn}
}

func primaryKeyColumn[T any](db *bun.DB) string {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if db == nil || typ.Kind() != reflect.Struct {
		return defaultKeyColumn
	}
	if table := db.Table(typ); table != nil && len(table.PKs) == 1 {
		return table.PKs[0].Name
	}
	return defaultKeyColumn
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) KeyColumn() string { return r.keyColumn }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	entity := new(T)
	err := r.db.NewSelect().
		Model(entity).
		Where(keyCondition, bun.Ident(r.keyColumn), id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().
		Model(&entities).
		OrderExpr("?TableAlias.? ASC", bun.Ident(r.keyColumn)).
		Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if f := pageRequest.GetFilter(); f != nil {
		query = query.Where(f.Schema, f.Args...)
	}
	if pageRequest.HasOrders() {
		query = query.Order(pageRequest.GetOrders()...)
	} else {
		query = query.OrderExpr("?TableAlias.? ASC", bun.Ident(r.keyColumn))
	}
	total, err := query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	pagination.Total = total
	if entities != nil {
		pagination.Items = entities
	}
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	return r.create(ctx, r.db, entity)
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.upsert(ctx, r.db, fields, duplicateKeys, entity)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	_, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	return r.delete(ctx, r.db, id)
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error {
	return r.create(ctx, tx, entity)
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.upsert(ctx, tx, fields, duplicateKeys, entity)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	_, err := tx.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return r.delete(ctx, tx, id)
}

func (r *baseRepositoryImpl[T]) create(ctx context.Context, db bun.IDB, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&entities).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) delete(ctx context.Context, db bun.IDB, id any) error {
	_, err := db.NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(r.keyColumn), id).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entities []*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entities) == 0 {
		return nil
	}
	switch {
	case r.db.HasFeature(feature.InsertOnConflict):
		if len(duplicateKeys) == 0 {
			duplicateKeys = []string{r.keyColumn}
		}
		return r.upsertOnConflict(ctx, db, fields, duplicateKeys, entities)
	case r.db.HasFeature(feature.InsertOnDuplicateKey):
		return r.upsertOnDuplicateKey(ctx, db, fields, entities)
	default:
		return r.upsertFallback(ctx, db, entities)
	}
}

// upsertOnDuplicateKey serves MySQL.
func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, db bun.IDB, fields []string, entities []*T) error {
	set := make([]string, 0, len(fields))
	args := make([]interface{}, 0, 2*len(fields))
	for _, field := range fields {
		set = append(set, "? = VALUES(?)")
		args = append(args, bun.Ident(field), bun.Ident(field))
	}
	_, err := db.NewInsert().
		Model(&entities).
		On("DUPLICATE KEY UPDATE "+strings.Join(set, ", "), args...).
		Exec(ctx)
	return err
}

// upsertOnConflict serves PostgreSQL and SQLite.
func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entities []*T) error {
	placeholders := make([]string, len(duplicateKeys))
	keys := make([]interface{}, len(duplicateKeys))
	for i, k := range duplicateKeys {
		placeholders[i] = "?"
		keys[i] = bun.Ident(k)
	}
	query := db.NewInsert().
		Model(&entities).
		On("CONFLICT ("+strings.Join(placeholders, ", ")+") DO UPDATE", keys...)
	for _, field := range fields {
		query = query.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	_, err := query.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		_, err := db.NewInsert().Model(entity).Exec(ctx)
		if err == nil {
			continue
		}
		if _, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
			return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
		}
	}
	return nil
}
