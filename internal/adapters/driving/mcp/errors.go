// Package mcp provides an MCP (Model Context Protocol) server adapter for procrag.
// It lets AI assistants classify questions, retrieve grounded passages and
// inspect the process position and permissions of a user.
package mcp

import "errors"

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("mcp: ask service is required")

// errServiceUnavailable is returned by tools whose optional port is not wired.
var errServiceUnavailable = errors.New("mcp: service not configured")
