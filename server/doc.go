// Package server exposes member searches and team statistics over HTTP
// with gin.
package server
