package config

import (
	"os"
	"strconv"
	"strings"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Kafka    KafkaConfig    `json:"kafka"`
	Logger   LoggerConfig   `json:"logger"`
	Cache    CacheConfig    `json:"cache"`
	Dispatch DispatchConfig `json:"dispatch"`
	Pricing  PricingConfig  `json:"pricing"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig представляет конфигурацию базы данных
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Orders    string `json:"orders"`
	Couriers  string `json:"couriers"`
	Locations string `json:"locations"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// CacheConfig представляет конфигурацию кеширования
type CacheConfig struct {
	Enabled    bool `json:"enabled"`
	DefaultTTL int  `json:"default_ttl"`  // TTL для обычных данных (секунды)
	HotDataTTL int  `json:"hot_data_ttl"` // TTL для горячих данных (секунды)
}

// DispatchConfig представляет конфигурацию рассылки уведомлений курьерам
type DispatchConfig struct {
	RadiusKm       float64 `json:"radius_km"`       // Радиус поиска курьеров вокруг ресторана (км)
	BatchSize      int     `json:"batch_size"`      // Лимит push-шлюза на размер одной пачки
	Workers        int     `json:"workers"`         // Количество воркеров для параллельной отправки пачек
	GatewayURL     string  `json:"gateway_url"`     // Адрес push-шлюза
	GatewayTimeout int     `json:"gateway_timeout"` // Таймаут одного запроса к шлюзу (секунды)
	DedupeTTL      int     `json:"dedupe_ttl"`      // TTL метки "рассылка уже была" (секунды)
}

// PricingConfig представляет конфигурацию расчета стоимости доставки
type PricingConfig struct {
	BasePrice  float64 `json:"base_price"`
	PricePerKm float64 `json:"price_per_km"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "dispatch_user"),
			Password: getEnv("DB_PASSWORD", "dispatch_pass"),
			DBName:   getEnv("DB_NAME", "delivery_dispatch"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "dispatch-service"),
			Topics: Topics{
				Orders:    getEnv("KAFKA_TOPIC_ORDERS", "orders"),
				Couriers:  getEnv("KAFKA_TOPIC_COURIERS", "couriers"),
				Locations: getEnv("KAFKA_TOPIC_LOCATIONS", "locations"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Cache: CacheConfig{
			Enabled:    getEnv("CACHE_ENABLED", "true") == "true",
			DefaultTTL: getEnvAsInt("CACHE_DEFAULT_TTL", 300), // 5 минут
			HotDataTTL: getEnvAsInt("CACHE_HOT_DATA_TTL", 60), // 1 минута
		},
		Dispatch: DispatchConfig{
			RadiusKm:       getEnvAsFloat("DISPATCH_RADIUS_KM", 10),
			BatchSize:      getEnvAsInt("DISPATCH_BATCH_SIZE", 100), // Документированный лимит push-шлюза
			Workers:        getEnvAsInt("DISPATCH_WORKERS", 4),
			GatewayURL:     getEnv("PUSH_GATEWAY_URL", "https://exp.host/--/api/v2/push/send"),
			GatewayTimeout: getEnvAsInt("PUSH_GATEWAY_TIMEOUT", 10),
			DedupeTTL:      getEnvAsInt("DISPATCH_DEDUPE_TTL", 600),
		},
		Pricing: PricingConfig{
			BasePrice:  getEnvAsFloat("PRICING_BASE_PRICE", 2.0),
			PricePerKm: getEnvAsFloat("PRICING_PRICE_PER_KM", 0.5),
			MinPrice:   getEnvAsFloat("PRICING_MIN_PRICE", 2.0),
			MaxPrice:   getEnvAsFloat("PRICING_MAX_PRICE", 15.0),
		},
	}
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat получает значение переменной окружения как float64 с значением по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
