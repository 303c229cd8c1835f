package zip

import (
	"bytes"
	"io"
	"testing"

	kzip "github.com/klauspost/compress/zip"
)

func TestWriteStoresEntries(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []Entry{
		{Filename: "a.png", Data: []byte("first")},
		{Filename: "a.png", Data: []byte("second")},
		{Filename: "b.jpg", Data: []byte("third")},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := kzip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	want := map[string]string{"a.png": "first", "1-a.png": "second", "b.jpg": "third"}
	if len(zr.File) != len(want) {
		t.Fatalf("entries = %d, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if want[f.Name] != string(data) {
			t.Fatalf("%s = %q, want %q", f.Name, data, want[f.Name])
		}
		if f.Method != kzip.Store {
			t.Fatalf("%s method = %d, want store", f.Name, f.Method)
		}
	}
}
