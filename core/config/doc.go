// Package config provides configuration management for the collection engine.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from the `default` struct tags of every
// section, registered by reflection so AutomaticEnv can resolve nested keys.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, metrics switch)
//   - Database: MySQL or SQLite connection details for the row store
//   - Storage: S3/MinIO credentials and bucket for the cache region
//   - Log: Logging level and format
//   - Engine: declared collection roles, extra-lazy default and cache switches
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Engine.Roles)
package config
