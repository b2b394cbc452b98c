package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "statusboard"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanEvents — лента изменений хранилища статусов дашборда.
	RedisChanEvents = RedisNamespace + ":events"
)
