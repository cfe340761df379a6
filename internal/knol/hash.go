package knol

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/conorfennell/flashmem/internal/domain"
)

// Encode writes the card identity as length-prefixed fields so that no
// choice of front/back text can make two distinct identities encode the
// same way.
func Encode(id domain.CardID) []byte {
	buf := make([]byte, 0, 16+len(id.Front)+len(id.Back))
	for _, part := range []string{id.Front, id.Back} {
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(part)))
		buf = append(buf, part...)
	}
	return buf
}

// Hash returns the SHA-256 of the card's identity as a hex string.
// The deck label is not part of the hash.
func Hash(card domain.Card) string {
	hashBytes := sha256.Sum256(Encode(card.ID()))
	return fmt.Sprintf("%x", hashBytes)
}
