package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

type (
	Config struct {
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		RollbarToken     string
		DefaultFromEmail string
		NotifyEmails     []string
		SendgridAPIKey   string

		Server   ServerConfig
		Database DatabaseConfig
		Backend  BackendConfig
		Workflow WorkflowConfig
	}

	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine       string
		Host         string
		Port         string
		Name         string
		User         string
		Password     string
		DisableTLS   bool
		SessionStore string // memory | postgres
	}

	// BackendConfig points to the external school backend that owns every school entity.
	BackendConfig struct {
		BaseURL           string
		GraphQLPath       string
		AcademicYearsPath string
		TermsPath         string
		FeeStructuresPath string
		Token             string
		Timeout           time.Duration
	}

	WorkflowConfig struct {
		RefetchDebounce time.Duration
		SessionTTL      time.Duration
		StepLease       time.Duration
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration from the environment (and the optional `config/.env.<env>` file).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Squlll")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "k2v#9s!q0dz&uoxh2(h!x)#*c2(#yg4h^$ceu1l-lll")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("notifyEmails", []string{})
	conf.SetDefault("sendgridApiKey", "")

	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverDebugHost", ":4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "squlll")
	conf.SetDefault("dbUser", "squlll")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbDisableTls", true)
	conf.SetDefault("sessionStore", SessionStoreMemory)

	conf.SetDefault("backendBaseUrl", "http://localhost:3000")
	conf.SetDefault("backendGraphqlPath", "/graphql")
	conf.SetDefault("backendAcademicYearsPath", "/api/school/academic-years")
	conf.SetDefault("backendTermsPath", "/api/school/terms")
	conf.SetDefault("backendFeeStructuresPath", "/api/school/fee-structures")
	conf.SetDefault("backendToken", "")
	conf.SetDefault("backendTimeout", 30*time.Second)

	conf.SetDefault("refetchDebounce", 500*time.Millisecond)
	conf.SetDefault("sessionTtl", 2*time.Hour)
	conf.SetDefault("stepLease", 10*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		Build:            conf.GetString("build"),
		SecretKey:        conf.GetString("secretKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		NotifyEmails:     conf.GetStringSlice("notifyEmails"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Address:            conf.GetString("serverAddress"),
			Host:               conf.GetString("serverHost"),
			DebugHost:          conf.GetString("serverDebugHost"),
			ShutdownTimeout:    conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:       conf.GetString("dbEngine"),
			Host:         conf.GetString("dbHost"),
			Port:         conf.GetString("dbPort"),
			Name:         conf.GetString("dbName"),
			User:         conf.GetString("dbUser"),
			Password:     conf.GetString("dbPassword"),
			DisableTLS:   conf.GetBool("dbDisableTls"),
			SessionStore: conf.GetString("sessionStore"),
		},
		Backend: BackendConfig{
			BaseURL:           strings.TrimRight(conf.GetString("backendBaseUrl"), "/"),
			GraphQLPath:       conf.GetString("backendGraphqlPath"),
			AcademicYearsPath: conf.GetString("backendAcademicYearsPath"),
			TermsPath:         conf.GetString("backendTermsPath"),
			FeeStructuresPath: conf.GetString("backendFeeStructuresPath"),
			Token:             conf.GetString("backendToken"),
			Timeout:           conf.GetDuration("backendTimeout"),
		},
		Workflow: WorkflowConfig{
			RefetchDebounce: conf.GetDuration("refetchDebounce"),
			SessionTTL:      conf.GetDuration("sessionTtl"),
			StepLease:       conf.GetDuration("stepLease"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests; it never reads the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Debug:            true,
		TestMode:         true,
		AppName:          "Squlll",
		Build:            "test",
		SecretKey:        "secret",
		DefaultFromEmail: "noreply@localhost",
		Server: ServerConfig{
			Address:            ":0",
			Host:               "localhost",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: 10 * time.Minute,
		},
		Database: DatabaseConfig{SessionStore: SessionStoreMemory},
		Backend: BackendConfig{
			GraphQLPath:       "/graphql",
			AcademicYearsPath: "/api/school/academic-years",
			TermsPath:         "/api/school/terms",
			FeeStructuresPath: "/api/school/fee-structures",
			Timeout:           5 * time.Second,
		},
		Workflow: WorkflowConfig{
			RefetchDebounce: 10 * time.Millisecond,
			SessionTTL:      time.Hour,
			StepLease:       time.Minute,
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s(env=%s, build=%s, debug=%v)", c.AppName, c.Env, c.Build, c.Debug)
}
