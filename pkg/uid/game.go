package uid

import (
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// GameAddress derives the stable storage address of a game from the
// deployment namespace and the game id. The same inputs always give the same
// address, so any node can locate a game without a lookup.
func GameAddress(namespace string, gameID uint64) string {
	h, _ := blake2b.New256(nil) // only fails for an oversized key
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(gameID, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
