// Package config loads service configuration from YAML files and environment
// variables via viper, with .env support through godotenv. It also provides
// ServiceConfig, the base struct every service config embeds.
package config
