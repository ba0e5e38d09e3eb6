package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrettyDuration(t *testing.T) {
	assert.Equal(t, "1.235s", PrettyDuration(1234567890).String())
	assert.Equal(t, "12.346ms", PrettyDuration(12345678).String())
	assert.Equal(t, "850ns", PrettyDuration(850).String())
}

func TestPrettyAge(t *testing.T) {
	assert.Equal(t, "0", PrettyAge(time.Now()).String())
	ago := time.Now().Add(-(26*time.Hour + 3*time.Minute + 30*time.Second))
	assert.Equal(t, "1d2h3m", PrettyAge(ago).String())
}

func TestStorageSize(t *testing.T) {
	assert.Equal(t, "512.00 B", StorageSize(512).String())
	assert.Equal(t, "1.50 KiB", StorageSize(1536).String())
	assert.Equal(t, "128.00 MiB", StorageSize(128*1024*1024).String())
	assert.Equal(t, "2048.00 TiB", StorageSize(2048*(1<<40)).String())
}
