package audiosub

import "embed"

//go:embed locales/*.json
var LocaleFiles embed.FS
