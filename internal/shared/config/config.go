package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration. It is loaded once at startup and
// handed to constructors explicitly; nothing reads ambient env state after
// that.
type Config struct {
	Env             string
	Backend         string
	ResumePath      string
	BackupDir       string
	BackupRetention int
	CommitAuthor    string

	GitHubToken   string
	GitHubOwner   string
	GitHubRepo    string
	GitHubBranch  string
	GitHubBaseURL string

	DatabaseURL string

	AWSRegion string
	S3Bucket  string
	S3Prefix  string

	FSDir string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	backend := normalizeBackend(getEnv("CONTENT_BACKEND", "fs"))

	if env == "production" {
		switch backend {
		case "github":
			if os.Getenv("GITHUB_TOKEN") == "" {
				log.Printf("GITHUB_TOKEN is required in production with the github backend")
			}
		case "postgres":
			if os.Getenv("DATABASE_URL") == "" {
				log.Printf("DATABASE_URL is required in production with the postgres backend")
			}
		}
	}

	return Config{
		Env:             env,
		Backend:         backend,
		ResumePath:      getEnv("RESUME_PATH", "data/resume.json"),
		BackupDir:       getEnv("BACKUP_DIR", "data/backups"),
		BackupRetention: getEnvInt("BACKUP_RETENTION", 0),
		CommitAuthor:    getEnv("COMMIT_AUTHOR", "resume-store"),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		GitHubOwner:     os.Getenv("GITHUB_OWNER"),
		GitHubRepo:      os.Getenv("GITHUB_REPO"),
		GitHubBranch:    os.Getenv("GITHUB_BRANCH"),
		GitHubBaseURL:   os.Getenv("GITHUB_BASE_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		FSDir:           getEnv("FS_DIR", "./data"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		log.Printf("config env %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "github":
		return "github"
	case "postgres", "pg":
		return "postgres"
	case "s3":
		return "s3"
	case "memory":
		return "memory"
	default:
		return "fs"
	}
}
