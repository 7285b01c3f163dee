package web

import "embed"

// staticFiles holds the status page served on GET /.
//
//go:embed static/*
var staticFiles embed.FS
