package geoip

import (
	"errors"
	"net"
	"testing"
)

type fakeReader struct {
	countries map[string]string
	calls     int
	err       error
}

func (f *fakeReader) Country(ip []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.countries[net.IP(ip).String()], nil
}

func TestOpenEmptyPath(t *testing.T) {
	r, err := Open("  ")
	if err != nil || r != nil {
		t.Fatalf("Open(\"\") = %v, %v", r, err)
	}
	if _, err := r.Lookup("1.2.3.4"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("nil resolver err = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLookup(t *testing.T) {
	reader := &fakeReader{countries: map[string]string{"49.36.0.1": "in", "8.8.8.8": "US"}}
	r := newResolver(reader, 2)

	tests := []struct {
		ip      string
		want    string
		wantErr bool
	}{
		{ip: "49.36.0.1", want: "IN"},
		{ip: "::ffff:49.36.0.1", want: "IN"},
		{ip: "8.8.8.8", want: "US"},
		{ip: "10.0.0.4", want: ""},
		{ip: "127.0.0.1", want: ""},
		{ip: "not-an-ip", wantErr: true},
	}
	for _, tc := range tests {
		got, err := r.Lookup(tc.ip)
		if (err != nil) != tc.wantErr {
			t.Fatalf("Lookup(%q) err = %v", tc.ip, err)
		}
		if got != tc.want {
			t.Fatalf("Lookup(%q) = %q, want %q", tc.ip, got, tc.want)
		}
	}
	// the mapped v6 form shares the cache entry; private ranges skip the reader
	if reader.calls != 2 {
		t.Fatalf("reader calls = %d, want 2", reader.calls)
	}
}

func TestLookupReaderError(t *testing.T) {
	r := newResolver(&fakeReader{err: errors.New("corrupt")}, 0)
	if _, err := r.Lookup("8.8.4.4"); err == nil {
		t.Fatalf("expected error")
	}
}
