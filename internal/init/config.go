package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// App mode & server
	Mode           string
	ServerAddr     string
	TLSCert        string
	TLSKey         string
	RequestTimeout time.Duration
	AllowedOrigins []string

	// Auth
	JWTSecret          string
	ClerkWebhookSecret string

	// Kafka
	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string
	KafkaReadTO  time.Duration
	KafkaWriteTO time.Duration
	KafkaBatchTO time.Duration

	// Worker
	WorkerCount     int
	WorkerQueueSize int

	// Cassandra
	CassandraHost        string
	CassandraKeyspace    string
	CassandraUsername    string
	CassandraPassword    string
	CassandraTimeout     time.Duration
	CassandraDC          string
	CassandraReplication int
	MigrationsPath       string

	// S3
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3PublicPrefix string
	S3UploadTTL    time.Duration
}

var cfg *Config

// Init loads the config using Viper and returns it. configFile may be empty,
// in which case config.yaml is looked up in . and ./config.
func Init(configFile string) *Config {
	viper.SetDefault("MODE", "server")
	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("REQUEST_TIMEOUT", "10s")
	viper.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:8081", "http://localhost:19006"})

	viper.SetDefault("KAFKA_BROKER", "localhost:29092")
	viper.SetDefault("KAFKA_TOPIC", "activity-topic")
	viper.SetDefault("KAFKA_GROUP_ID", "reconciler-group")
	viper.SetDefault("KAFKA_READ_TIMEOUT", "10s")
	viper.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")
	viper.SetDefault("KAFKA_BATCH_TIMEOUT", "5ms")

	viper.SetDefault("WORKER_COUNT", 0)
	viper.SetDefault("WORKER_QUEUE_SIZE", 0)

	viper.SetDefault("CASSANDRA_HOST", "localhost")
	viper.SetDefault("CASSANDRA_KEYSPACE", "snapgram")
	viper.SetDefault("CASSANDRA_TIMEOUT", "10s")
	viper.SetDefault("CASSANDRA_REPLICATION", 1)
	viper.SetDefault("MIGRATIONS_PATH", "./migrations/cassandra")
	// Optional: Cassandra username/password/DC can be empty

	viper.SetDefault("S3_BUCKET", "snapgram-uploads")
	viper.SetDefault("S3_REGION", "us-west-1")
	viper.SetDefault("S3_UPLOAD_TTL", "15m")

	// Load env variables
	viper.AutomaticEnv()

	// Optional config file support
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	_ = viper.ReadInConfig() // ignore error if no file

	cfg = &Config{
		Mode:                 viper.GetString("MODE"),
		ServerAddr:           viper.GetString("SERVER_ADDR"),
		TLSCert:              viper.GetString("TLS_CERT"),
		TLSKey:               viper.GetString("TLS_KEY"),
		RequestTimeout:       parseDuration(viper.GetString("REQUEST_TIMEOUT"), 10*time.Second),
		AllowedOrigins:       viper.GetStringSlice("ALLOWED_ORIGINS"),
		JWTSecret:            viper.GetString("JWT_SECRET"),
		ClerkWebhookSecret:   viper.GetString("CLERK_WEBHOOK_SECRET"),
		KafkaBroker:          viper.GetString("KAFKA_BROKER"),
		KafkaTopic:           viper.GetString("KAFKA_TOPIC"),
		KafkaGroupID:         viper.GetString("KAFKA_GROUP_ID"),
		KafkaReadTO:          parseDuration(viper.GetString("KAFKA_READ_TIMEOUT"), 10*time.Second),
		KafkaWriteTO:         parseDuration(viper.GetString("KAFKA_WRITE_TIMEOUT"), 10*time.Second),
		KafkaBatchTO:         parseDuration(viper.GetString("KAFKA_BATCH_TIMEOUT"), 5*time.Millisecond),
		WorkerCount:          viper.GetInt("WORKER_COUNT"),
		WorkerQueueSize:      viper.GetInt("WORKER_QUEUE_SIZE"),
		CassandraHost:        viper.GetString("CASSANDRA_HOST"),
		CassandraKeyspace:    viper.GetString("CASSANDRA_KEYSPACE"),
		CassandraUsername:    viper.GetString("CASSANDRA_USERNAME"),
		CassandraPassword:    viper.GetString("CASSANDRA_PASSWORD"),
		CassandraTimeout:     parseDuration(viper.GetString("CASSANDRA_TIMEOUT"), 10*time.Second),
		CassandraDC:          viper.GetString("CASSANDRA_DC"),
		CassandraReplication: viper.GetInt("CASSANDRA_REPLICATION"),
		MigrationsPath:       viper.GetString("MIGRATIONS_PATH"),
		S3Bucket:             viper.GetString("S3_BUCKET"),
		S3Region:             viper.GetString("S3_REGION"),
		S3Endpoint:           viper.GetString("S3_ENDPOINT"),
		S3PublicPrefix:       viper.GetString("S3_PUBLIC_PREFIX"),
		S3UploadTTL:          parseDuration(viper.GetString("S3_UPLOAD_TTL"), 15*time.Minute),
	}

	return cfg
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// Get returns the loaded config instance
func Get() *Config {
	return cfg
}
