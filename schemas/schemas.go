// Package schemas embeds the JSON Schema documents shipped with the portal.
package schemas

import "embed"

// Names of the embedded schema files.
const (
	DraftSnapshot = "draft_snapshot.schema.json"
	Application   = "application.schema.json"
)

// FS holds every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS
