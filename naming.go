package doc2pub

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-doc2pub/internal/dateutil"
)

// maxUniqueAttempts bounds the collision suffix search in UniqueName.
const maxUniqueAttempts = 1000

// ErrNameExhausted is returned when UniqueName cannot find a free name.
var ErrNameExhausted = errors.New("no free output name")

// GenerateName derives an output file name from basePath: the extension is
// stripped, "_" and the local time at second resolution are appended, then
// targetExt. Only the base name is returned.
//
// Two calls within the same second for the same input yield the same name.
// Use UniqueName when the result must not overwrite an existing file.
func GenerateName(basePath, targetExt string, now time.Time) string {
	name, _ := generateName(basePath, targetExt, now, dateutil.DefaultTimestampFormat)
	return name
}

func generateName(basePath, targetExt string, now time.Time, pattern string) (string, error) {
	stamp, err := dateutil.FormatTimestamp(pattern, now)
	if err != nil {
		return "", err
	}
	return stemOf(basePath) + "_" + stamp + normalizeExt(targetExt), nil
}

// UniqueName returns a name from GenerateName that is free in dir. When the
// name, or stem+suffix for any of reserved, is taken, a numeric suffix
// _1, _2, ... is appended to the stem until all are free. reserved lets the
// caller claim sibling artifacts such as ".epub" or "_media".
func UniqueName(dir, basePath, targetExt string, now time.Time, reserved ...string) (string, error) {
	return uniqueName(dir, basePath, targetExt, now, dateutil.DefaultTimestampFormat, nil, reserved...)
}

// uniqueName is UniqueName with a timestamp pattern and an optional claimed
// predicate for names held by jobs that have not written them yet.
func uniqueName(dir, basePath, targetExt string, now time.Time, pattern string, claimed func(string) bool, reserved ...string) (string, error) {
	name, err := generateName(basePath, targetExt, now, pattern)
	if err != nil {
		return "", err
	}
	ext := normalizeExt(targetExt)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxUniqueAttempts; i++ {
		candidate := stem
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", stem, i)
		}
		if claimed != nil && claimed(candidate+ext) {
			continue
		}
		if nameFree(dir, candidate+ext) && allFree(dir, candidate, reserved) {
			return candidate + ext, nil
		}
	}
	return "", fmt.Errorf("%w: %s after %d attempts", ErrNameExhausted, name, maxUniqueAttempts)
}

func allFree(dir, stem string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if !nameFree(dir, stem+suffix) {
			return false
		}
	}
	return true
}

func nameFree(dir, name string) bool {
	_, err := os.Lstat(filepath.Join(dir, name))
	return errors.Is(err, os.ErrNotExist)
}

// stemOf returns the base name of path without its extension.
func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// normalizeExt returns ext with exactly one leading dot, or "" for empty.
func normalizeExt(ext string) string {
	ext = strings.TrimLeft(ext, ".")
	if ext == "" {
		return ""
	}
	return "." + ext
}
