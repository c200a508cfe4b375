package repository

import (
	"github.com/jaevor/go-nanoid"
)

// IDLength is the length of room IDs, membership tokens and message IDs.
const IDLength = 21

// newIDGenerator returns a URL-safe nanoid generator. Standard only fails for
// lengths outside 2..255.
func newIDGenerator() func() string {
	gen, err := nanoid.Standard(IDLength)
	if err != nil {
		panic(err)
	}
	return gen
}
