// Package server holds the HTTP server configuration.
//
// While the serve command handles the server startup, this package defines the
// configuration structure for the listen port, the API key guarding the
// inspection endpoints and the metrics switch.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server
// settings and by cmd to build the Fiber application.
package server
