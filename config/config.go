package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// EnvPrefix namespaces environment overrides, e.g. SCANNER_STORE. PORT and
// MONGODB_URI are also read unprefixed.
const EnvPrefix = "SCANNER"

var (
	ErrMissingMongoURI    = errors.New("missing parameter --mongodb-uri (MONGODB_URI)")
	ErrNoCORSOrigins      = errors.New("missing parameter --cors-origins")
	ErrWildcardCORSOrigin = errors.New("--cors-origins must list origins, not *")
)

type Config struct {
	Addr  string
	Debug bool

	Store           string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	SQLitePath      string
	ConnectTimeout  time.Duration
	OpTimeout       time.Duration

	QuestionsFile string

	CORS CORSConfig

	GeoURL      string
	GeoTimeout  time.Duration
	GeoCacheTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// CORSConfig is the single cross-origin policy applied by the router.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// Load parses command line flags, falling back to environment variables and
// then to defaults. Flag "sqlite-path" maps to SCANNER_SQLITE_PATH, and so on.
func Load(args []string) (cfg Config, err error) {
	fs := pflag.NewFlagSet("santas-scanner", pflag.ContinueOnError)
	fs.String("host", "0.0.0.0", "listen host name")
	fs.Uint("port", 3000, "listen port number")
	fs.Bool("debug", false, "log at DEBUG level")

	fs.String("store", StoreMongo, "result store backend (mongo|sqlite)")
	fs.String("mongodb-uri", "", "MongoDB connection string")
	fs.String("mongodb-database", "santas-scanner", "MongoDB database name")
	fs.String("mongodb-collection", "scanresults", "MongoDB collection for scan results")
	fs.String("sqlite-path", "scanner.sqlite", "path to SQLite3 DB file")
	fs.Duration("connect-timeout", 10*time.Second, "store connection timeout")
	fs.Duration("op-timeout", 5*time.Second, "store operation timeout")

	fs.String("questions-file", "", "JSON file overriding the embedded question set")

	fs.StringSlice("cors-origins", []string{"http://localhost:5173", "http://localhost:3000"}, "allowed CORS origins")
	fs.StringSlice("cors-methods", []string{"GET", "POST", "OPTIONS"}, "allowed CORS methods")
	fs.StringSlice("cors-headers", []string{"Content-Type"}, "allowed CORS request headers")
	fs.Int("cors-max-age", 84600, "preflight cache max-age in seconds")

	fs.String("geo-url", "http://ip-api.com/json/", "IP geolocation service base URL")
	fs.Duration("geo-timeout", 3*time.Second, "IP geolocation request timeout")
	fs.Duration("geo-cache-ttl", 24*time.Hour, "TTL of cached country lookups")

	fs.String("redis-addr", "", "Redis address for the country cache (disabled if empty)")
	fs.String("redis-password", "", "Redis password")
	fs.Int("redis-db", 0, "Redis database number")

	if err = fs.Parse(args); err != nil {
		return
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")
	_ = v.BindEnv("mongodb-uri", EnvPrefix+"_MONGODB_URI", "MONGODB_URI")
	if err = v.BindPFlags(fs); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(v.GetString("host"), strconv.Itoa(v.GetInt("port")))
	cfg.Debug = v.GetBool("debug")

	cfg.Store = strings.ToLower(v.GetString("store"))
	cfg.MongoURI = v.GetString("mongodb-uri")
	cfg.MongoDatabase = v.GetString("mongodb-database")
	cfg.MongoCollection = v.GetString("mongodb-collection")
	cfg.SQLitePath = v.GetString("sqlite-path")
	cfg.ConnectTimeout = v.GetDuration("connect-timeout")
	cfg.OpTimeout = v.GetDuration("op-timeout")

	cfg.QuestionsFile = v.GetString("questions-file")

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetStringSlice("cors-origins")),
		AllowedMethods: splitList(v.GetStringSlice("cors-methods")),
		AllowedHeaders: splitList(v.GetStringSlice("cors-headers")),
		MaxAge:         v.GetInt("cors-max-age"),
	}

	cfg.GeoURL = v.GetString("geo-url")
	cfg.GeoTimeout = v.GetDuration("geo-timeout")
	cfg.GeoCacheTTL = v.GetDuration("geo-cache-ttl")

	cfg.RedisAddr = v.GetString("redis-addr")
	cfg.RedisPassword = v.GetString("redis-password")
	cfg.RedisDB = v.GetInt("redis-db")

	err = cfg.validate()
	return
}

func (cfg Config) validate() error {
	switch cfg.Store {
	case StoreMongo:
		if cfg.MongoURI == "" {
			return ErrMissingMongoURI
		}
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return errors.New("missing parameter --sqlite-path")
		}
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		return ErrNoCORSOrigins
	}
	if slices.Contains(cfg.CORS.AllowedOrigins, "*") {
		return ErrWildcardCORSOrigin
	}
	if cfg.GeoTimeout <= 0 {
		return errors.New("geo-timeout must be positive")
	}
	return nil
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

// env values arrive as one comma separated string
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
