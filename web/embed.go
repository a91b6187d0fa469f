// Package web embeds the HTML templates and static assets served by the
// fintrack HTTP server.
package web

import "embed"

// TemplatesFS holds the page templates and the htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the client script.
//
//go:embed static/*
var StaticFS embed.FS
