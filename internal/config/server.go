package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Server holds the API process settings, read from the environment.
type Server struct {
	Port       string
	Env        string
	DBPath     string
	ConfigPath string
}

// LoadServer reads a .env file if present, then the environment.
func LoadServer() Server {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
	return Server{
		Port:       getenvDefault("API_PORT", "8080"),
		Env:        getenvDefault("API_ENV", "development"),
		DBPath:     getenvDefault("EEMETER_DB", "eemeter.db"),
		ConfigPath: os.Getenv("EEMETER_CONFIG"),
	}
}

func (s Server) Production() bool { return s.Env == "production" }

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
