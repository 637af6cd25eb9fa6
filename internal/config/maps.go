package config

type MapsConfig struct {
	Provider   string            `yaml:"provider"` // google, none
	GoogleMaps *GoogleMapsConfig `yaml:"google_maps"`
}

type GoogleMapsConfig struct {
	APIKey string `yaml:"api_key"`
	// Language of addresses in notification text, e.g. "en" or "de".
	Language string `yaml:"language"`
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Provider: getEnv("MAPS_PROVIDER", "none"),
		GoogleMaps: &GoogleMapsConfig{
			APIKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),
			Language: getEnv("GOOGLE_MAPS_LANGUAGE", "en"),
		},
	}
}
