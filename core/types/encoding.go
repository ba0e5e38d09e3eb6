package types

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding keeps hashes stable across nodes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 20,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode returns the canonical encoding of v.
func Encode(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Decode parses data produced by Encode into v.
func Decode(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}

// hashOf returns the keccak hash of the canonical encoding of x.
func hashOf(x interface{}) common.Hash {
	enc, err := encMode.Marshal(x)
	if err != nil {
		// Only plain data structs are hashed, which always encode.
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// DeriveRoot commits to an ordered list of hashes.
func DeriveRoot(hashes []common.Hash) common.Hash {
	if len(hashes) == 0 {
		return common.Hash{}
	}
	buf := make([]byte, 0, len(hashes)*common.HashLength)
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}
	return crypto.Keccak256Hash(buf)
}
