package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "underscore"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanRouteSettings - трансляция изменений transient-настроек маршрутов между инстансами.
	RedisChanRouteSettings = RedisNamespace + ":routes:settings"
)
