// Package fileid names documents under the managed PDF directory.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const legacyPrefix = "pdfs/"

// CanonicalName returns the name a document is stored under: the base file
// name, with any leading "pdfs/" directory stripped. Both "pdfs/a.pdf" and
// "/srv/docs/pdfs/a.pdf" map to "a.pdf".
func CanonicalName(path string) string {
	p := filepath.ToSlash(strings.TrimSpace(path))
	p = strings.TrimPrefix(p, legacyPrefix)
	if p == "" {
		return ""
	}
	name := filepath.Base(filepath.FromSlash(p))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// Fingerprint returns a stable digest of a file's size and modification time.
// It changes whenever the file is rewritten.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return FingerprintInfo(info), nil
}

// FingerprintInfo is Fingerprint for an already-stat'ed file.
func FingerprintInfo(info os.FileInfo) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())))
	return hex.EncodeToString(sum[:16])
}
