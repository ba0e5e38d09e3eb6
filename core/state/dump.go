package state

import (
	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
)

type dumpEntry struct {
	_     struct{} `cbor:",toarray"`
	Key   common.Hash
	Value []byte
}

type stateDump struct {
	_       struct{} `cbor:",toarray"`
	Count   uint32
	Entries []dumpEntry
}

// Dump encodes the state contents in key order. Journaled changes are
// included.
func (s *StateDB) Dump() ([]byte, error) {
	keys := s.sortedKeys()
	dump := stateDump{Count: s.count, Entries: make([]dumpEntry, len(keys))}
	for i, k := range keys {
		dump.Entries[i] = dumpEntry{Key: k, Value: s.kv[k]}
	}
	return types.Encode(&dump)
}

// Load decodes a state produced by Dump.
func Load(data []byte) (*StateDB, error) {
	var dump stateDump
	if err := types.Decode(data, &dump); err != nil {
		return nil, err
	}
	s := newEmpty()
	s.count = dump.Count
	for _, e := range dump.Entries {
		s.kv[e.Key] = e.Value
	}
	return s, nil
}
