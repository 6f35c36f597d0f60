package cliparse

import (
	"errors"
	"flag"
	"os"
)

type Config struct {
	ServerURL    string
	AuthToken    string
	HomeID       string
	UserID       string
	CatalogURL   string
	CatalogKey   string
	DatabaseURL  string
	DatabaseType string
	Command      string
	Args         []string
}

// DefaultCatalogURL is the movie catalog used when none is configured.
const DefaultCatalogURL = "https://api.themoviedb.org/3"

// ParseFlags validates flags, falling back to environment variables, and
// picks the command from the first positional argument.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("nestwatch", flag.ContinueOnError)

	// Server and identity (can be CLI args or env)
	fs.StringVar(&cfg.ServerURL, "s", "", "PocketBase server URL")
	fs.StringVar(&cfg.HomeID, "H", "", "Household (home) record id")
	fs.StringVar(&cfg.UserID, "u", "", "Acting user record id")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AuthToken, "t", "", "Auth token (prefer env)")
	fs.StringVar(&cfg.CatalogKey, "catalog-key", "", "Movie catalog API key (prefer env)")

	// Catalog and local store
	fs.StringVar(&cfg.CatalogURL, "catalog-url", "", "Movie catalog base URL")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Local database URL (local-only play)")
	fs.StringVar(&cfg.DatabaseType, "dbtype", "", "Local database type (sqlite or postgres)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.ServerURL == "" {
		cfg.ServerURL = os.Getenv("NESTWATCH_SERVER")
	}
	if cfg.ServerURL == "" {
		return Config{}, errors.New("server URL required (use -s or NESTWATCH_SERVER env)")
	}

	if cfg.HomeID == "" {
		cfg.HomeID = os.Getenv("NESTWATCH_HOME")
	}
	if cfg.HomeID == "" {
		return Config{}, errors.New("home id required (use -H or NESTWATCH_HOME env)")
	}

	if cfg.UserID == "" {
		cfg.UserID = os.Getenv("NESTWATCH_USER")
	}
	if cfg.UserID == "" {
		return Config{}, errors.New("user id required (use -u or NESTWATCH_USER env)")
	}

	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("NESTWATCH_TOKEN")
	}

	if cfg.CatalogURL == "" {
		cfg.CatalogURL = os.Getenv("CATALOG_URL")
	}
	if cfg.CatalogURL == "" {
		cfg.CatalogURL = DefaultCatalogURL
	}
	if cfg.CatalogKey == "" {
		cfg.CatalogKey = os.Getenv("CATALOG_KEY")
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "nestwatch.db"
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}

	cfg.Command = fs.Arg(0)
	if cfg.Command == "" {
		cfg.Command = "status"
	}
	if fs.NArg() > 1 {
		cfg.Args = fs.Args()[1:]
	}

	return cfg, nil
}
