package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(Config{
		MaxPingCount:   10,
		PingTimeout:    time.Minute,
		PingPriceOctas: 100000,
	})
}

func TestRegistry_Resolve(t *testing.T) {
	registry := testRegistry()

	entry, err := registry.Resolve("ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", entry.Name)
	assert.Equal(t, int64(100000), entry.PriceOctas)
	require.NotNil(t, entry.New)

	job := entry.New("job-1", map[string]any{"host": "example.com"})
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.JobID())
	assert.NoError(t, job.Validate())
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	registry := testRegistry()

	_, err := registry.Resolve("mine-bitcoin")
	assert.ErrorIs(t, err, ErrUnknownJobType)
}

func TestRegistry_List(t *testing.T) {
	registry := testRegistry()

	entries := registry.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "ping", entries[0].Name)
}
