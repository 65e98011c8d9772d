// Package config loads service configuration from a YAML file, a .env file
// and prefixed environment variables.
//
// It uses Viper for the file and environment layers and godotenv for .env
// files. Environment variables override file values when they carry the
// service prefix, with underscore-separated paths:
//
//	INFERSTREAM_CLIENT_BASE_URL=http://localhost:5143  ->  client.base_url
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("inferstream", &cfg, config.WithConfigFile(path))
package config
