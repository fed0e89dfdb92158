package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver        string
	DBUser          string
	DBPass          string
	DBHost          string
	DBPort          string
	DBName          string
	DBTimeout       time.Duration
	Addr            string
	CORSOrigins     []string
	FetchBatchSize  int
	DeleteBatchSize int
	LogLevel        string
	LogFormat       string
	JWTSecret       string
	SeedDev         bool
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n > 0 {
		return n
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}

// Load reads an optional .env file and then builds the config from the
// environment. Variables already set in the environment take precedence.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	return New()
}

func New() Config {
	driver := strings.ToLower(getenv("DB_DRIVER", "mysql"))
	defPort := "3306"
	if driver == "postgres" {
		defPort = "5432"
	}
	return Config{
		DBDriver:        driver,
		DBUser:          getenv("DB_USER", "root"),
		DBPass:          getenv("DB_PASS", ""),
		DBHost:          getenv("DB_HOST", "127.0.0.1"),
		DBPort:          getenv("DB_PORT", defPort),
		DBName:          getenv("DB_NAME", "missions"),
		DBTimeout:       getenvDuration("DB_TIMEOUT", 30*time.Second),
		Addr:            getenv("ADDR", ":8080"),
		CORSOrigins:     splitList(getenv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		FetchBatchSize:  getenvInt("FETCH_BATCH_SIZE", 1000),
		DeleteBatchSize: getenvInt("DELETE_BATCH_SIZE", 100),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "console"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SeedDev:         os.Getenv("SEED_DEV") == "1",
	}
}

func (c Config) Validate() error {
	if c.DBDriver != "mysql" && c.DBDriver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be mysql or postgres, got %q", c.DBDriver)
	}
	if c.DBName == "" && os.Getenv("READ_DSN") == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if dsn := os.Getenv("READ_DSN"); dsn != "" {
		return dsn
	}
	if c.DBDriver == "postgres" {
		return c.PostgresDSN()
	}
	return c.MySQLDSN()
}

func (c Config) MySQLDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func (c Config) PostgresDSN() string {
	parts := []string{
		"host=" + c.DBHost,
		"port=" + c.DBPort,
		"user=" + c.DBUser,
		"dbname=" + c.DBName,
		"sslmode=" + getenv("DB_SSLMODE", "disable"),
	}
	if c.DBPass != "" {
		parts = append(parts, "password="+c.DBPass)
	}
	return strings.Join(parts, " ")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
