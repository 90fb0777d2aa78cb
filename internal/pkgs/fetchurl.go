package pkgs

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/fetch"
)

// Returns a fixed-output step downloading a source archive.
func FetchURL(url, hash string) drv.Handle {
	return fetch.URL(fetch.URLOptions{URL: url, Hash: hash})
}
