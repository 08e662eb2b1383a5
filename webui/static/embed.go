// Package static holds the upload page and its assets.
package static

import "embed"

// FS contains index.html plus the css/ and js/ directories.
//
//go:embed index.html css js
var FS embed.FS
