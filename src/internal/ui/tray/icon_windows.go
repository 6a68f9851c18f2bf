package tray

import _ "embed"

// The Windows tray only accepts ICO data
//
//go:embed icon.ico
var icon []byte
