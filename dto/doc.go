// Package dto contains search conditions and flat query projections.
package dto
