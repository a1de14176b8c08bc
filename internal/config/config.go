package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/pokedex/pkg/config"
	"github.com/Skotchmaster/pokedex/pkg/hash"
	"github.com/Skotchmaster/pokedex/pkg/tokens"
)

type Config struct {
	ServiceName string
	ServerPort  string
	LogLevel    string
	DatabaseURL string

	// JWTSecret is empty unless configured; the server then generates one.
	JWTSecret      []byte
	AccessTokenTTL time.Duration
	HashIterations int
	DefaultRole    string

	SpeciesAPIURL  string
	SpeciesTimeout time.Duration

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RevocationPruneInterval time.Duration
	LoginRateLimit          float64
}

// Load reads .env from the working directory when present and then the
// process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env not loaded: %v, using environment", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		ServiceName: config.EnvDefault("SERVICE_NAME", "pokedex"),
		ServerPort:  config.EnvDefault("SERVER_PORT", "8080"),
		LogLevel:    config.EnvDefault("LOG_LEVEL", "info"),
		DatabaseURL: config.EnvDefault("DATABASE_URL", "sqlite://pokedex.db"),

		JWTSecret:      []byte(config.EnvDefault("JWT_SECRET", "")),
		AccessTokenTTL: config.EnvDurationDefault("ACCESS_TOKEN_TTL", tokens.DefaultTTL),
		HashIterations: config.EnvIntDefault("HASH_ITERATIONS", hash.DefaultIterations),
		DefaultRole:    config.EnvDefault("DEFAULT_ROLE", "user"),

		SpeciesAPIURL:  config.EnvDefault("SPECIES_API_URL", "https://pokeapi.co/api/v2/pokemon"),
		SpeciesTimeout: config.EnvDurationDefault("SPECIES_TIMEOUT", 5*time.Second),

		KafkaBrokers: config.CSV(config.EnvDefault("KAFKA_BROKERS", "")),

		ESURL:      config.EnvDefault("ES_URL", ""),
		ESUser:     config.EnvDefault("ES_USER", ""),
		ESPassword: config.EnvDefault("ES_PASSWORD", ""),
		ESIndex:    config.EnvDefault("ES_INDEX", "pokemon"),

		RevocationPruneInterval: config.EnvDurationDefault("REVOCATION_PRUNE_INTERVAL", time.Hour),
		LoginRateLimit:          config.EnvFloatDefault("LOGIN_RATE_LIMIT", 5),
	}
}
