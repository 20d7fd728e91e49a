package app

import "github.com/astraljournal/lunarlog/internal/database"

// DatabaseOptions maps the loaded configuration onto the database layer's
// connection options, preferring an explicit host block over path defaults.
func (c *Config) DatabaseOptions() database.Config {
	cfg := database.Config{
		Driver: c.Database.Driver,
		Path:   c.Database.Path,
		DSN:    c.Database.DSN,
	}

	var host DBAuthConfig
	switch c.Database.Driver {
	case "postgres":
		host = c.Database.Postgres
	case "mysql":
		host = c.Database.MySQL
	}

	if host.Enabled {
		cfg.Host = host.Host
		cfg.Port = host.Port
		cfg.Name = host.Database
		cfg.User = host.Username
		cfg.Password = host.Password
	}

	return cfg
}

// UpstreamClientConfigs returns the astronomy and tarot client configurations.
func (c *Config) UpstreamClientConfigs() (astronomy, tarot UpstreamAPIConfig) {
	return c.Upstream.Astronomy, c.Upstream.Tarot
}
