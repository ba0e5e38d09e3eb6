package state

import (
	"encoding/binary"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

// Key type tags, hashed with the key fields to place every value in the
// flat key space.
const (
	tagNonce      byte = 1
	tagScriptHash byte = 2
	tagAccountID  byte = 3
	tagBalance    byte = 4
)

func idKey(tag byte, id uint32) common.Hash {
	var buf [5]byte
	buf[0] = tag
	binary.LittleEndian.PutUint32(buf[1:], id)
	return crypto.Keccak256Hash(buf[:])
}

func nonceKey(id uint32) common.Hash { return idKey(tagNonce, id) }

func scriptHashKey(id uint32) common.Hash { return idKey(tagScriptHash, id) }

func accountIDKey(scriptHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{tagAccountID}, scriptHash.Bytes())
}

func balanceKey(sudtID uint32, owner common.Hash) common.Hash {
	var id [4]byte
	binary.LittleEndian.PutUint32(id[:], sudtID)
	return crypto.Keccak256Hash([]byte{tagBalance}, id[:], owner.Bytes())
}

// SudtAccountScriptHash is the script hash of the layer 2 account that
// mirrors a base chain token.
func SudtAccountScriptHash(l1SudtScriptHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte("sudt"), l1SudtScriptHash.Bytes())
}
