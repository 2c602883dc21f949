package config

// DefaultPort is the listen port when neither the config file nor PORT sets one.
const DefaultPort = 3001

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "dist"
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.CatalogFile == "" {
		cfg.Data.CatalogFile = "videos.csv"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Storage.ResponsesDir == "" {
		cfg.Storage.ResponsesDir = "responses"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "responses/responses.db"
	}
}
