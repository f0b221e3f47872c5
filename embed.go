package promopress

import "embed"

// EmbeddedAssets contains static assets shipped with the framework:
// popup.js, the client runtime for the promotional overlay.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
