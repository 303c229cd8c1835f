// Package zip bundles stored images into a single download.
package zip

import (
	"fmt"
	"io"
	"time"

	kzip "github.com/klauspost/compress/zip"
)

// Entry is one file inside an archive.
type Entry struct {
	Filename string
	Modified time.Time
	Data     []byte
}

// Write streams entries into w as a zip archive. Image formats are already
// compressed, so entries are stored rather than deflated.
func Write(w io.Writer, entries []Entry) error {
	zw := kzip.NewWriter(w)
	seen := make(map[string]int, len(entries))
	for _, entry := range entries {
		name := uniqueName(entry.Filename, seen)
		hdr := &kzip.FileHeader{Name: name, Method: kzip.Store}
		if !entry.Modified.IsZero() {
			hdr.Modified = entry.Modified
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := fw.Write(entry.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func uniqueName(name string, seen map[string]int) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%d-%s", n, name)
}
