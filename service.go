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

package querystudy

import (
	"context"
	"sync"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querystudy/database"
	"github.com/tomoncle/querystudy/repository"
	"github.com/tomoncle/querystudy/types"
)

// Service is a CRUD facade over the generic repository of T. Get returns
// repository.ErrNotFound for a missing key.
type Service[T any] interface {
	Get(ctx context.Context, id any) (*T, error)
	All(ctx context.Context) ([]*T, error)
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	Save(ctx context.Context, model ...*T) error
	// SaveOrUpdate updates fields of rows whose duplicateKeys already exist.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error
	Update(ctx context.Context, model *T) error
	Delete(ctx context.Context, id any) error

	// Transaction runs fn in a transaction that is rolled back when fn
	// returns an error.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *bun.Tx) error) error
	SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error
	SaveOrUpdateWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, model ...*T) error
	UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error
	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error

	SelectBuilder() *bun.SelectQuery
	InsertBuilder() *bun.InsertQuery
	UpdateBuilder() *bun.UpdateQuery
	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	db   func() *bun.DB
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a Service bound to the global database. The
// repository is created on first use, so NewService may run before InitDB.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{db: database.GetDB}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB[T any](db *bun.DB) Service[T] {
	return &baseServiceImpl[T]{db: func() *bun.DB { return db }}
}

func (s *baseServiceImpl[T]) repository() repository.Repository[T] {
	s.once.Do(func() { s.repo = repository.NewRepository[T](s.db()) })
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.repository().GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.repository().GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return s.repository().List(ctx, filter)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return s.repository().Query(ctx, query, args...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.repository().Page(ctx, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.repository().Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.repository().Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.repository().Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.repository().Delete(ctx, id)
}

func (s *baseServiceImpl[T]) Transaction(ctx context.Context, fn func(ctx context.Context, tx *bun.Tx) error) error {
	return s.db().RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &tx)
	})
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error {
	return s.repository().CreateWithTx(ctx, tx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdateWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, model ...*T) error {
	return s.repository().UpsertWithTx(ctx, tx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error {
	return s.repository().UpdateWithTx(ctx, tx, model)
}

func (s *baseServiceImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return s.repository().DeleteWithTx(ctx, tx, id)
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery { return s.repository().NewSelect() }

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery { return s.repository().NewInsert() }

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery { return s.repository().NewUpdate() }

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery { return s.repository().NewDelete() }
