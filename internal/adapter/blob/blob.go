// Package blob stores batch record files on the local filesystem or in S3.
package blob

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("blob not found")

// BatchSuffixes are the file extensions recognized as batch records.
var BatchSuffixes = []string{".jsonl", ".jsonl.zst"}

// Store reads and writes batch files.
type Store interface {
	// Put writes data under name and returns a human-readable location.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get returns the content stored under key, as returned by List.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the sorted keys of every batch file in the store.
	List(ctx context.Context) ([]string, error)
	// Location renders a key for logs.
	Location(key string) string
}

// IsBatchFile reports whether name carries one of BatchSuffixes.
func IsBatchFile(name string) bool {
	for _, s := range BatchSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Stem returns the base name of key without its batch suffix.
func Stem(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	for _, s := range []string{".jsonl.zst", ".jsonl"} {
		if strings.HasSuffix(key, s) {
			return strings.TrimSuffix(key, s)
		}
	}
	return key
}
