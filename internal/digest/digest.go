// Package digest maps byte sequences to fixed-length content fingerprints.
//
// A Digest is the sole notion of chunk sameness used by deduplication: two
// chunks with equal digests are treated as identical content.
package digest

import (
	"crypto/md5"  // #nosec G501 - kept for compatibility with md5 indexes
	"crypto/sha1" // #nosec G505
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/zeebo/blake3"

	"github.com/substantialcattle5/redup/internal/constants"
)

// Digest is the raw fingerprint of a byte sequence. It is stored as a string
// so it can key maps directly.
type Digest string

// Hex returns the lowercase hex encoding of d.
func (d Digest) Hex() string {
	return hex.EncodeToString([]byte(d))
}

// Short returns a truncated hex form for log and display output.
func (d Digest) Short() string {
	h := d.Hex()
	if len(h) > constants.HashDisplayLength {
		return h[:constants.HashDisplayLength]
	}
	return h
}

func (d Digest) String() string { return d.Hex() }

// Bytes returns a copy of the raw fingerprint.
func (d Digest) Bytes() []byte { return []byte(d) }

// FromBytes wraps raw fingerprint bytes.
func FromBytes(b []byte) Digest { return Digest(b) }

// Func is a Digest Function bound to one hash algorithm. It is stateless and
// safe for concurrent use.
type Func struct {
	algorithm string
	newHash   func() hash.Hash
	size      int
}

// Algorithms lists the supported algorithm names.
func Algorithms() []string {
	return []string{
		constants.HashAlgorithmSHA256,
		constants.HashAlgorithmBLAKE3,
		constants.HashAlgorithmSHA512,
		constants.HashAlgorithmSHA1,
		constants.HashAlgorithmMD5,
	}
}

// CreateHasher creates a hasher based on the configured hash algorithm
func CreateHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case constants.HashAlgorithmSHA256, "": // Default to SHA-256 if empty
		return sha256.New(), nil
	case constants.HashAlgorithmSHA512:
		return sha512.New(), nil
	case constants.HashAlgorithmSHA1:
		// #nosec G401
		return sha1.New(), nil
	case constants.HashAlgorithmMD5:
		// #nosec G401
		return md5.New(), nil
	case constants.HashAlgorithmBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// New returns the Digest Function for algorithm. An empty name selects the default.
func New(algorithm string) (*Func, error) {
	if algorithm == "" {
		algorithm = constants.DefaultHashAlgorithm
	}
	h, err := CreateHasher(algorithm)
	if err != nil {
		return nil, err
	}
	return &Func{
		algorithm: algorithm,
		newHash: func() hash.Hash {
			// CreateHasher already accepted this algorithm.
			h, _ := CreateHasher(algorithm)
			return h
		},
		size: h.Size(),
	}, nil
}

// MustNew is like New but panics on an unknown algorithm.
func MustNew(algorithm string) *Func {
	f, err := New(algorithm)
	if err != nil {
		panic(err)
	}
	return f
}

// Algorithm returns the algorithm name.
func (f *Func) Algorithm() string { return f.algorithm }

// Size returns the digest length in bytes.
func (f *Func) Size() int { return f.size }

// Sum fingerprints exactly the bytes of data, whatever their length.
func (f *Func) Sum(data []byte) Digest {
	h := f.newHash()
	h.Write(data) // hash.Hash writes never fail
	return Digest(h.Sum(nil))
}

// NewHash returns a fresh incremental hasher for the algorithm. Feeding it a
// stream and calling Sum yields the same value as Sum over the whole content.
func (f *Func) NewHash() hash.Hash { return f.newHash() }

// SumReader fingerprints everything read from r.
func (f *Func) SumReader(r io.Reader) (Digest, int64, error) {
	h := f.newHash()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return Digest(h.Sum(nil)), n, nil
}
