// Package predicate composes optional boolean conditions for bun queries.
// Absent filter values produce nil expressions, which every combinator and
// Where simply skip.
package predicate
