package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		Build            string
		SecretKey        []byte // signs access credentials
		RefreshSecretKey []byte // signs refresh credentials; distinct from SecretKey
		FrontendBaseURL  string
		WorkDir          string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server ServerConfig

		// token lifetimes
		JWTExpirationDelta            time.Duration // access credential
		RefreshExpirationDelta        time.Duration // refresh credential
		EmailVerificationTimeoutDelta time.Duration
		PasswordResetTimeoutDelta     time.Duration

		// bound on outbound calls (blob/email/file proxying)
		ExternalTimeout time.Duration
		UploadMaxSize   int64

		Database DatabaseConfig
		Redis    RedisConfig
		B2       B2Config
	}

	ServerConfig struct {
		Host            string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine     string
		Host       string
		Port       string
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	B2Config struct {
		KeyID   string
		AppKey  string
		Bucket  string
		BaseURL string
	}
)

func (dbc DatabaseConfig) Address() string {
	return dbc.Host + ":" + dbc.Port
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "TesaLearn")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "q3$9zpoq5-wer)enb+57=dz&uoxh2(h!x)#*c2(#yg4h^$ceg")
	v.SetDefault("refreshSecretKey", "m2emy8(h!x)#*c2(#yg4h^$q3$9zpoq5-wer)enb+57=dz&uo")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverShutdownTimeout", 20*time.Second)
	v.SetDefault("jwtExpirationDelta", time.Hour)
	v.SetDefault("refreshExpirationDelta", 24*time.Hour)
	v.SetDefault("emailVerificationTimeoutDelta", time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", time.Hour)
	v.SetDefault("externalTimeout", 30*time.Second)
	v.SetDefault("uploadMaxSize", int64(50<<20))
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "tesa")
	v.SetDefault("dbUser", "postgres")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("redisDB", 0)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Build:            v.GetString("build"),
		SecretKey:        []byte(v.GetString("secretKey")),
		RefreshSecretKey: []byte(v.GetString("refreshSecretKey")),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          wd,
		DefaultFromEmail: mail.Address{Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
		},
		JWTExpirationDelta:            v.GetDuration("jwtExpirationDelta"),
		RefreshExpirationDelta:        v.GetDuration("refreshExpirationDelta"),
		EmailVerificationTimeoutDelta: v.GetDuration("emailVerificationTimeoutDelta"),
		PasswordResetTimeoutDelta:     v.GetDuration("passwordResetTimeoutDelta"),
		ExternalTimeout:               v.GetDuration("externalTimeout"),
		UploadMaxSize:                 v.GetInt64("uploadMaxSize"),
		Database: DatabaseConfig{
			Engine:     v.GetString("dbEngine"),
			Host:       v.GetString("dbHost"),
			Port:       v.GetString("dbPort"),
			Name:       v.GetString("dbName"),
			User:       v.GetString("dbUser"),
			Password:   v.GetString("dbPassword"),
			DisableTLS: v.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		B2: B2Config{
			KeyID:   v.GetString("b2KeyId"),
			AppKey:  v.GetString("b2AppKey"),
			Bucket:  v.GetString("b2Bucket"),
			BaseURL: v.GetString("b2BaseUrl"),
		},
	}
}

// getwd walks up from the current directory to the dir holding go.mod.
// go-test changes the working directory to the test package being run;
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
