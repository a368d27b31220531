package util

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	"strconv"
)

const (
	CopyIDPrefix = "KND-"
	copyIDMin    = 100000
	copyIDSpan   = 900000
)

// NewCopyID returns "KND-" followed by a random integer in [100000, 999999].
// Uniqueness is left to the customers.copy_id constraint.
func NewCopyID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(copyIDSpan))
	if err != nil {
		panic(err)
	}
	return CopyIDPrefix + strconv.FormatInt(copyIDMin+n.Int64(), 10)
}

// NewToken concatenates two independent base-36 random fragments.
func NewToken() string {
	return fragment() + fragment()
}

func fragment() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
}
