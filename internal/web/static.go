package web

import (
	"embed"
)

// staticFiles holds the kiosk page: index.html, app.js and style.css.
//
//go:embed static/*
var staticFiles embed.FS
