package leveldb

import (
	"testing"

	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/ethdb/dbtest"
	"github.com/dominant-strategies/go-quai-l2/log"
)

func TestLevelDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() ethdb.KeyValueStore {
			return NewMemory(log.NewNullLogger())
		})
	})
}
