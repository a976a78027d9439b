// Package ticketid generates identifiers for tickets and players.
//
// IDs are UUIDv7 values encoded as 26-character Crockford base32 strings with
// a single-letter kind prefix ("T-" for tickets, "P-" for players), so they
// sort by creation time and are safe to paste into URLs and logs.
package ticketid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

const encodedLen = 26

// Kind distinguishes the entities an ID can name.
type Kind string

const (
	KindTicket Kind = "T"
	KindPlayer Kind = "P"
)

// RandSource interface for dependency injection of randomness
type RandSource interface {
	Intn(n int) int
}

// Generator produces IDs with configurable randomness for deterministic tests.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// NewTicketID returns a fresh ticket ID using crypto/rand.
func NewTicketID() string {
	return NewGenerator(nil).Generate(KindTicket)
}

// NewPlayerID returns a fresh player ID using crypto/rand.
func NewPlayerID() string {
	return NewGenerator(nil).Generate(KindPlayer)
}

// Generate creates a new prefixed ID using the generator's RandSource.
func (g *Generator) Generate(kind Kind) string {
	uuid := g.generateUUIDv7()
	return string(kind) + "-" + encodeBase32(uuid)
}

// generateUUIDv7 creates a 128-bit UUIDv7
func (g *Generator) generateUUIDv7() [16]byte {
	var uuid [16]byte

	// UUIDv7 format:
	// 48-bit timestamp (milliseconds since Unix epoch)
	// 12-bit random data for sub-millisecond precision
	// 4-bit version (0111 for version 7)
	// 2-bit variant (10)
	// 62-bit random data

	now := time.Now().UnixMilli()

	uuid[0] = byte(now >> 40)
	uuid[1] = byte(now >> 32)
	uuid[2] = byte(now >> 24)
	uuid[3] = byte(now >> 16)
	uuid[4] = byte(now >> 8)
	uuid[5] = byte(now)

	if g.randSource != nil {
		// Use provided RandSource for deterministic testing
		for i := 6; i < 16; i++ {
			uuid[i] = byte(g.randSource.Intn(256))
		}
	} else {
		if _, err := rand.Read(uuid[6:]); err != nil {
			panic("failed to generate random bytes: " + err.Error())
		}
	}

	// Set version (4 bits) to 7 (0111)
	uuid[6] = (uuid[6] & 0x0f) | 0x70

	// Set variant (2 bits) to 10
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return uuid
}

// encodeBase32 encodes a 128-bit UUID as a 26-character base32 string
func encodeBase32(data [16]byte) string {
	result := make([]byte, encodedLen)

	// Encode 5 bits per output character, walking the 128-bit value
	for i := 0; i < encodedLen; i++ {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var value uint8

		if byteIndex < 16 {
			if bitIndex <= 3 {
				// All 5 bits are in the same byte
				value = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				// Bits span two bytes
				value = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < 16 {
					value |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}

		result[i] = alphabet[value]
	}

	return string(result)
}

// Validate checks that an ID carries the expected kind prefix and a
// well-formed base32 body.
func Validate(id string, kind Kind) error {
	prefix := string(kind) + "-"
	if !strings.HasPrefix(id, prefix) {
		return fmt.Errorf("ID must start with %q, got %q", prefix, id)
	}

	body := id[len(prefix):]
	if len(body) != encodedLen {
		return fmt.Errorf("ID body must be exactly %d characters, got %d", encodedLen, len(body))
	}

	// First character encodes the top bits of the timestamp; anything above
	// '7' would represent more than 128 bits.
	if body[0] > '7' {
		return fmt.Errorf("ID first character must be 0-7, got %c", body[0])
	}

	for i, char := range body {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}

	return nil
}
