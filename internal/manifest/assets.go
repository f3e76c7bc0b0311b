package manifest

import (
	"path"
	"strings"
)

// assetDirs are reserved top-level directories whose contents are never pages.
var assetDirs = []string{"static/", "assets/"}

var assetExtensions = map[string]bool{
	// scripts and styles
	".js": true, ".mjs": true, ".cjs": true, ".map": true, ".css": true,
	// images
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".avif": true, ".ico": true, ".bmp": true,
	// fonts
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	// structured data
	".json": true, ".xml": true, ".rss": true, ".atom": true, ".txt": true,
	".webmanifest": true,
	// archives
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".bz2": true,
	".xz": true, ".7z": true, ".rar": true,
}

// IsStaticAsset reports whether p is a non-page asset: anything under a
// reserved asset directory or with an asset extension.
func IsStaticAsset(p string) bool {
	p = NormalizePath(p)
	for _, dir := range assetDirs {
		if strings.HasPrefix(p, dir) {
			return true
		}
	}
	return assetExtensions[strings.ToLower(path.Ext(p))]
}
