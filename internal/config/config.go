package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	MinIO  MinIOConfig
	Kafka  KafkaConfig
	JWT    JWTConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MongoConfig struct {
	URI    string
	DBName string
}

type RedisConfig struct {
	URI string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

func LoadConfig() (*Config, error) {
	once.Do(func() {
		viper.SetDefault("SOCIAL_PORT", "8080")
		viper.SetDefault("SOCIAL_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("SOCIAL_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("SOCIAL_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("SOCIAL_JWT_SECRET", "secret")
		viper.SetDefault("SOCIAL_JWT_EXPIRE", "24h")
		viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
		viper.SetDefault("MONGO_DB", "social_graph")
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
		viper.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
		viper.SetDefault("MINIO_SECRET_KEY", "minioadmin")
		viper.SetDefault("MINIO_BUCKET", "social-media")
		viper.SetDefault("MINIO_USE_SSL", false)
		viper.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
		viper.SetDefault("KAFKA_TOPIC", "message-events")
		viper.SetDefault("KAFKA_ENABLED", false)
		viper.AutomaticEnv()

		ConfigInstance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("SOCIAL_HOST"),
				Port:         viper.GetString("SOCIAL_PORT"),
				ReadTimeout:  viper.GetDuration("SOCIAL_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("SOCIAL_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("SOCIAL_IDLE_TIMEOUT"),
			},
			Mongo: MongoConfig{
				URI:    viper.GetString("MONGO_URI"),
				DBName: viper.GetString("MONGO_DB"),
			},
			Redis: RedisConfig{
				URI: viper.GetString("REDIS_URL"),
			},
			MinIO: MinIOConfig{
				Endpoint:  viper.GetString("MINIO_ENDPOINT"),
				AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
				SecretKey: viper.GetString("MINIO_SECRET_KEY"),
				Bucket:    viper.GetString("MINIO_BUCKET"),
				UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			},
			Kafka: KafkaConfig{
				Brokers: viper.GetStringSlice("KAFKA_BROKERS"),
				Topic:   viper.GetString("KAFKA_TOPIC"),
				Enabled: viper.GetBool("KAFKA_ENABLED"),
			},
			JWT: JWTConfig{
				Secret:         viper.GetString("SOCIAL_JWT_SECRET"),
				ExpirationTime: viper.GetDuration("SOCIAL_JWT_EXPIRE"),
			},
		}
	})

	return ConfigInstance, nil
}
