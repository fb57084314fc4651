// Package entity defines the persisted Team and Member models and registers
// them with the database model registry.
package entity
