// Package assets provides the in-binary filesystem of web UI files the
// HTTP server streams to clients. The set of files is fixed at compile
// time via go:embed, mirroring the flat fsdata table the original
// firmware built from its web assets.
package assets

import (
	"embed"
	"path"
	"strings"
)

//go:embed files
var embedded embed.FS

// Asset is one compile-time (path, bytes, contentType) entry.
type Asset struct {
	Path        string
	Bytes       []byte
	ContentType string
}

var table map[string]Asset

func init() {
	table = make(map[string]Asset)
	entries, err := embedded.ReadDir("files")
	if err != nil {
		panic("assets: embedded files directory missing: " + err.Error())
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := embedded.ReadFile(path.Join("files", e.Name()))
		if err != nil {
			panic("assets: " + err.Error())
		}
		urlPath := "/" + e.Name()
		table[urlPath] = Asset{
			Path:        urlPath,
			Bytes:       data,
			ContentType: contentTypeFor(e.Name()),
		}
	}
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(name, ".css"):
		return "text/css; charset=utf-8"
	case strings.HasSuffix(name, ".js"):
		return "application/javascript; charset=utf-8"
	case strings.HasSuffix(name, ".json"):
		return "application/json; charset=utf-8"
	case strings.HasSuffix(name, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// Lookup returns the asset at urlPath, if any.
func Lookup(urlPath string) (Asset, bool) {
	a, ok := table[urlPath]
	return a, ok
}

// Index returns the SPA fallback document served for any non-API GET
// that doesn't match a file.
func Index() Asset {
	a, ok := table["/index.html"]
	if !ok {
		panic("assets: /index.html missing from embedded table")
	}
	return a
}
