// Package config provides environment-based configuration.
//
// Loads from .env file (godotenv) at startup, validates required fields and
// normalizes the DATABASE_URL scheme for the PostgreSQL driver.
package config
