// Package web holds the dashboard pages and their static assets.
package web

import "embed"

// TemplatesFS holds the page templates; base.html defines the shared layout.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
