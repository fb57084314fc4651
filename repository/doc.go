// Package repository provides a generic Bun repository with CRUD, paging,
// transactions and upsert, and the member and team repositories built on it.
package repository
