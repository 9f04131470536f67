package environment

import (
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
)

// Production defines the prod environment
const Production = "prod"

// Staging defines the staging environment
const Staging = "staging"

// Dev defines the dev environment
const Dev = "dev"

// Environment holds all configuration read from the .env file
type Environment struct {
	Environment string `mapstructure:"APP_ENV"`
	Port        string `mapstructure:"PORT"`
	Database    string `mapstructure:"DATABASE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Secret      string `mapstructure:"SECRET"`
	Sendinblue  string `mapstructure:"SENDINBLUE"`
	BaseURL     string `mapstructure:"BASE_URL"`
}

// Global is the process wide configuration instance
var Global Environment

// Initialize reads the .env file into Global
func Initialize() {
	data, err := godotenv.Read(".env")
	if err != nil {
		panic(err)
	}

	err = mapstructure.Decode(data, &Global)
	if err != nil {
		panic(err)
	}
}
