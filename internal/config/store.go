package config

// StoreConfig selects the event record backend: mongodb, sqlite or memory.
type StoreConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	Migrate    bool   `yaml:"migrate"`
	// RollbackTo reverts MongoDB migrations down to this version and exits.
	// Negative disables it.
	RollbackTo int `yaml:"rollback_to"`
}

func loadStoreConfig() *StoreConfig {
	return &StoreConfig{
		Driver:     getEnv("STORE_DRIVER", "mongodb"),
		SQLitePath: getEnv("SQLITE_PATH", "sosline.db"),
		Migrate:    getEnvAsBool("STORE_MIGRATE", true),
		RollbackTo: getEnvAsInt("STORE_ROLLBACK_TO", -1),
	}
}

// RollbackRequested reports whether this run only reverts migrations.
func (c *StoreConfig) RollbackRequested() bool {
	return c.RollbackTo >= 0
}
