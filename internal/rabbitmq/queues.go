package rabbitmq

// Ключи маршрутизации и имена очередей.
const (
	QueuePreferences   = "preferences.learn"
	RoutingPreferences = "preferences.learn"
	QueueEmails        = "notifications.email"
	RoutingEmails      = "notifications.email"
)

// prefetch ограничивает неподтвержденные доставки на канал и число обработчиков.
const prefetch = 10

// QueueConfig привязывает очередь к exchange по ключу маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Queues возвращает все очереди, которые слушает воркер.
func Queues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueuePreferences, RoutingKey: RoutingPreferences},
		{QueueName: QueueEmails, RoutingKey: RoutingEmails},
	}
}
