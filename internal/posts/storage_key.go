package posts

import (
	"path"
	"strings"
)

// StorageKey derives the file store key for an image attached to postID.
// Directory components of filename are dropped.
func StorageKey(postID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload"
	}
	return postID + "_" + base
}
