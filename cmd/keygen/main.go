// Command keygen prints a random 256-bit key for ENCRYPTION_KEY.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"vanish/pkg/sealer"
)

func main() {
	key := make([]byte, sealer.KeySize)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}

	fmt.Println("ENCRYPTION_KEY=" + hex.EncodeToString(key))
}
