package core

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Hash is the hex SHA-256 of an input file, recorded in run manifests so a
// report can be traced to the exact bytes it was computed from.
type Hash string

func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashReader hashes everything readable from r.
func HashReader(r io.Reader) (Hash, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Hash(hex.EncodeToString(h.Sum(nil))), nil
}

// HashFile hashes the file at path.
func HashFile(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HashReader(f)
}

func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

func (h Hash) IsEmpty() bool {
	return h == ""
}
