// Package database opens and supervises the Bun connection used by the
// repositories, creates the member/team schema through versioned
// migrations, seeds data from SQL files, and classifies driver errors.
package database
