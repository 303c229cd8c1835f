// Package geoip maps visitor addresses to countries so locale detection can
// fall back to a regional default when the browser sends no preference.
package geoip

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when no database is loaded.
var ErrUnavailable = errors.New("geoip resolver unavailable")

const defaultCacheSize = 4096

type countryReader interface {
	Country(ip []byte) (string, error)
}

type mmdbReader struct {
	db *geoip2.Reader
}

func (m mmdbReader) Country(ip []byte) (string, error) {
	record, err := m.db.Country(ip)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", nil
	}
	return record.Country.IsoCode, nil
}

// Resolver looks up ISO country codes in a MaxMind database. Results are
// memoized per address; the cache is dropped wholesale when it fills up.
type Resolver struct {
	reader countryReader
	closer func() error

	mu    sync.Mutex
	cache map[netip.Addr]string
	limit int
}

// Open loads the database at path. An empty path yields a nil resolver, whose
// Lookup always reports ErrUnavailable.
func Open(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	r := newResolver(mmdbReader{db: db}, defaultCacheSize)
	r.closer = db.Close
	return r, nil
}

func newResolver(reader countryReader, limit int) *Resolver {
	if limit <= 0 {
		limit = defaultCacheSize
	}
	return &Resolver{reader: reader, cache: make(map[netip.Addr]string), limit: limit}
}

// Lookup returns the country for ip. Private and loopback addresses resolve
// to "" without touching the database.
func (r *Resolver) Lookup(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return "", nil
	}

	r.mu.Lock()
	code, ok := r.cache[addr]
	r.mu.Unlock()
	if ok {
		return code, nil
	}

	raw := addr.AsSlice()
	code, err = r.reader.Country(raw)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	code = strings.ToUpper(code)

	r.mu.Lock()
	if len(r.cache) >= r.limit {
		clear(r.cache)
	}
	r.cache[addr] = code
	r.mu.Unlock()
	return code, nil
}

// Close releases the database.
func (r *Resolver) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}
