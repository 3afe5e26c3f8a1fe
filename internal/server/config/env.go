package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "FILEVAULT_"

// parseEnv overlays values from FILEVAULT_* environment variables.
//
// A dotenv file is loaded first: the one named by -env, or ./.env when
// present. Variables already set in the process environment win over the
// file. An explicitly named file that cannot be read, or a malformed value,
// panics like the other config sources.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlag(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "SECRET_KEY")
	envDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	envDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	envString(&config.StorageBackend, "STORAGE_BACKEND")
	envString(&config.MediaRoot, "MEDIA_ROOT")
	envInt64(&config.MaxUploadSize, "MAX_UPLOAD_SIZE")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envBool(&config.S3PresignDownloads, "S3_PRESIGN_DOWNLOADS")
	envString(&config.LogLevel, "LOG_LEVEL")
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}

func envInt64(dst *int64, name string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func envBool(dst *bool, name string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		*dst = b
	}
}
