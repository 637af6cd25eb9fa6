package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMigrations_Reversible(t *testing.T) {
	migrations := getMigrations()
	require.NotEmpty(t, migrations)

	previous := 0
	for _, m := range migrations {
		assert.Greater(t, m.Version, previous, "versions must ascend")
		assert.NotEmpty(t, m.Description)
		assert.NotNil(t, m.Up, "migration %d has no Up", m.Version)
		assert.NotNil(t, m.Down, "migration %d has no Down", m.Version)
		previous = m.Version
	}
}
