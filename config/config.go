package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool

	Drafts      DraftConfig
	Photos      PhotoConfig
	Debounce    time.Duration
	SessionIdle time.Duration

	BackendURL   string
	BackendToken string
}

type DraftConfig struct {
	Backend       string
	KeyPrefix     string
	SchemaVersion string
	TTL           time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type PhotoConfig struct {
	Backend  string
	MaxBytes int64

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool
}

var (
	draftBackends = []string{"sqlite", "redis", "memory"}
	photoBackends = []string{"sqlite", "minio", "memory"}
)

func defaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 80)
	v.SetDefault("db-url", "pmdraft.sqlite")
	v.SetDefault("token-secret", "")
	v.SetDefault("token-ttl", 120)
	v.SetDefault("debug", false)

	v.SetDefault("draft-backend", "sqlite")
	v.SetDefault("key-prefix", "pmDraft")
	v.SetDefault("schema-version", "v2")
	v.SetDefault("draft-ttl", 30*24*time.Hour)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-password", "")
	v.SetDefault("redis-db", 0)

	v.SetDefault("photo-backend", "sqlite")
	v.SetDefault("photo-max-bytes", 10<<20)
	v.SetDefault("minio-endpoint", "")
	v.SetDefault("minio-access-key", "")
	v.SetDefault("minio-secret-key", "")
	v.SetDefault("minio-bucket", "pm-photos")
	v.SetDefault("minio-ssl", false)

	v.SetDefault("debounce", 800*time.Millisecond)
	v.SetDefault("session-idle", 30*time.Minute)
	v.SetDefault("backend-url", "")
	v.SetDefault("backend-token", "")
}

// Load layers defaults, an optional pmdraft.yaml, the environment (PMDRAFT_*,
// .env included) and finally the command line flags in args.
func Load(args []string) (cfg Config, err error) {
	if cfg, _, err = parse(args); err != nil {
		return
	}
	err = cfg.validate()
	return
}

// LoadForAdmin reads the configuration the same way as Load for the admin
// subcommands, which need no token secret. It also returns the positional
// arguments left after the flags.
func LoadForAdmin(args []string) (Config, []string, error) {
	cfg, rest, err := parse(args)
	if err != nil {
		return cfg, nil, err
	}
	if cfg.DBUrl == "" {
		return cfg, nil, errors.New("missing parameter -db-url")
	}
	return cfg, rest, nil
}

func parse(args []string) (cfg Config, rest []string, err error) {
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.SetConfigName("pmdraft")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, nil, fmt.Errorf("read config: %w", err)
		}
		err = nil
	}
	v.SetEnvPrefix("PMDRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := flag.NewFlagSet("pmdraft", flag.ContinueOnError)
	host := fs.String("host", v.GetString("host"), "listen host name")
	port := fs.Uint("port", v.GetUint("port"), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", v.GetString("db-url"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", v.GetString("token-secret"), "secret key for token encryption and decryption")
	ttl := fs.Uint("token-ttl", v.GetUint("token-ttl"), "token TTL in seconds")
	fs.BoolVar(&cfg.Debug, "debug", v.GetBool("debug"), "log at DEBUG level")

	fs.StringVar(&cfg.Drafts.Backend, "draft-backend", v.GetString("draft-backend"), "draft storage: sqlite, redis or memory")
	fs.StringVar(&cfg.Drafts.KeyPrefix, "key-prefix", v.GetString("key-prefix"), "draft key prefix")
	fs.StringVar(&cfg.Drafts.SchemaVersion, "schema-version", v.GetString("schema-version"), "draft key schema version")
	fs.DurationVar(&cfg.Drafts.TTL, "draft-ttl", v.GetDuration("draft-ttl"), "expiry of drafts kept in redis (0 keeps forever)")
	fs.StringVar(&cfg.Drafts.RedisAddr, "redis-addr", v.GetString("redis-addr"), "redis address")
	fs.StringVar(&cfg.Drafts.RedisPassword, "redis-password", v.GetString("redis-password"), "redis password")
	fs.IntVar(&cfg.Drafts.RedisDB, "redis-db", v.GetInt("redis-db"), "redis database number")

	fs.StringVar(&cfg.Photos.Backend, "photo-backend", v.GetString("photo-backend"), "photo storage: sqlite, minio or memory")
	fs.Int64Var(&cfg.Photos.MaxBytes, "photo-max-bytes", v.GetInt64("photo-max-bytes"), "largest accepted photo")
	fs.StringVar(&cfg.Photos.MinioEndpoint, "minio-endpoint", v.GetString("minio-endpoint"), "minio endpoint host:port")
	fs.StringVar(&cfg.Photos.MinioAccessKey, "minio-access-key", v.GetString("minio-access-key"), "minio access key")
	fs.StringVar(&cfg.Photos.MinioSecretKey, "minio-secret-key", v.GetString("minio-secret-key"), "minio secret key")
	fs.StringVar(&cfg.Photos.MinioBucket, "minio-bucket", v.GetString("minio-bucket"), "minio bucket for photos")
	fs.BoolVar(&cfg.Photos.MinioSSL, "minio-ssl", v.GetBool("minio-ssl"), "use TLS towards minio")

	fs.DurationVar(&cfg.Debounce, "debounce", v.GetDuration("debounce"), "delay before an edited draft is persisted")
	fs.DurationVar(&cfg.SessionIdle, "session-idle", v.GetDuration("session-idle"), "unmount drafts untouched for this long (0 keeps them)")
	fs.StringVar(&cfg.BackendURL, "backend-url", v.GetString("backend-url"), "base URL of the iMPS backend")
	fs.StringVar(&cfg.BackendToken, "backend-token", v.GetString("backend-token"), "bearer token for the iMPS backend")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(*host, strconv.Itoa(int(*port)))
	cfg.TokenTTL = time.Duration(*ttl) * time.Second
	return cfg, fs.Args(), nil
}

func (cfg Config) validate() error {
	if cfg.TokenSecret == "" {
		return errors.New("missing parameter -token-secret")
	}
	if !oneOf(cfg.Drafts.Backend, draftBackends) {
		return fmt.Errorf("invalid -draft-backend %q", cfg.Drafts.Backend)
	}
	if !oneOf(cfg.Photos.Backend, photoBackends) {
		return fmt.Errorf("invalid -photo-backend %q", cfg.Photos.Backend)
	}
	if cfg.Photos.Backend == "minio" && cfg.Photos.MinioEndpoint == "" {
		return errors.New("missing parameter -minio-endpoint")
	}
	if cfg.Debounce <= 0 {
		return errors.New("-debounce must be positive")
	}
	if cfg.SessionIdle < 0 {
		return errors.New("-session-idle must not be negative")
	}
	return nil
}

func oneOf(s string, values []string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
