package resources

import "embed"

//go:embed migrations i18n words
var FS embed.FS
