// Package key provides fragment identities and their debug labels.
//
// A Key names one logical node of the fragment tree and stays the same for
// as long as that node lives, however often it is re-evaluated. Keys come
// from two places:
//
//   - a Source hands out fresh, never-repeating keys (used for roots)
//   - Derive computes a child key from its parent key and a discriminator,
//     so the same child resolves to the same key on every evaluation
//
// Neither uses package-level state. The Map registry that turns keys into
// human readable labels is an explicit value as well.
package key

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Key is an opaque fragment identity.
type Key uint64

// String returns the key in hexadecimal form.
func (k Key) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// Source hands out unique keys. The zero value is ready to use.
type Source struct {
	next atomic.Uint64
}

// Next returns a key that this Source has never returned before.
// Source keys have the top bit set so they never collide with small
// hand-written keys used in tests and demos.
func (s *Source) Next() Key {
	return Key(s.next.Add(1) | 1<<63)
}

// Derive returns the key of the child of parent identified by name.
// The result depends only on its inputs.
func Derive(parent Key, name string) Key {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(parent))

	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(name)
	return Key(d.Sum64())
}

// DeriveIndex is Derive for positional children.
func DeriveIndex(parent Key, i int) Key {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(parent))
	binary.LittleEndian.PutUint64(buf[8:], uint64(i))
	return Key(xxhash.Sum64(buf[:]) ^ 0x9e3779b97f4a7c15)
}
