package config

import (
	"os"
	"strconv"
)

type S3 struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	QueueKey  string
	MediaDir  string
	Endpoint  string
}

type Meta struct {
	APIVersion       string
	IGUserID         string
	FBPageID         string
	IGAccessToken    string
	FBPageToken      string
	HTTPTimeoutSec   int
	Retries          int
	RetryBackoffSec  float64
	ContainerTimeout int
	ContainerPollSec int
}

type Scheduler struct {
	AnchorChannel string
	Timezone      string
	CooldownDays  int
	AMHour        int
	PMHour        int
}

type Config struct {
	ListenAddr     string
	PostgresURI    string
	RedisURI       string
	AdminAPIKey    string
	ApproveSecret  string
	ApproveTTLDays int
	S3             S3
	Meta           Meta
	Scheduler      Scheduler
}

func LoadConfig() *Config {
	return &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8000"),
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		RedisURI:       getEnv("REDIS_URI", "127.0.0.1:6379"),
		AdminAPIKey:    getEnv("ADMIN_API_KEY", ""),
		ApproveSecret:  getEnv("APPROVE_LINK_SECRET", ""),
		ApproveTTLDays: getEnvInt("APPROVE_LINK_TTL_DAYS", 7),
		S3: S3{
			Region:    getEnv("AWS_REGION", "us-east-1"),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:    getEnv("QUEUE_S3_BUCKET", ""),
			QueueKey:  getEnv("QUEUE_S3_KEY", "social/approved_posts.json"),
			MediaDir:  getEnv("MEDIA_S3_PREFIX", "social/media"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
		},
		Meta: Meta{
			APIVersion:       getEnv("META_API_VERSION", "v23.0"),
			IGUserID:         getEnv("IG_USER_ID", ""),
			FBPageID:         getEnv("FB_PAGE_ID", ""),
			IGAccessToken:    getEnv("IG_ACCESS_TOKEN", ""),
			FBPageToken:      getEnv("FB_PAGE_ACCESS_TOKEN", ""),
			HTTPTimeoutSec:   getEnvInt("HTTP_TIMEOUT_S", 20),
			Retries:          getEnvInt("HTTP_RETRIES", 3),
			RetryBackoffSec:  getEnvFloat("HTTP_RETRY_BACKOFF_S", 1.5),
			ContainerTimeout: getEnvInt("IG_CONTAINER_TIMEOUT_S", 300),
			ContainerPollSec: getEnvInt("IG_CONTAINER_POLL_S", 5),
		},
		Scheduler: Scheduler{
			AnchorChannel: getEnv("SCHEDULER_ODD_AM", "instagram"),
			Timezone:      getEnv("TZ", "America/New_York"),
			CooldownDays:  getEnvInt("RECENT_COOLDOWN_DAYS", 3),
			AMHour:        getEnvInt("SCHEDULER_AM_HOUR", 9),
			PMHour:        getEnvInt("SCHEDULER_PM_HOUR", 17),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
