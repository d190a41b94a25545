// Package config loads environment-driven configuration structs.
//
// It combines github.com/joho/godotenv (loading a local .env file once per
// process) with github.com/caarlos0/env (parsing `env` struct tags), which is
// how every Config struct in this module is populated.
package config
