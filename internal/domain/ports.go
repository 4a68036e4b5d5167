package domain

// OrderRepository описывает требования к хранилищу заказов.
// Хранилище считается синхронным: успешный Save немедленно виден последующим Get.
type OrderRepository interface {
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// Save выполняет upsert. Заказу без ID хранилище присваивает идентификатор
	// при первой вставке и возвращает сохранённую версию.
	Save(order Order) (Order, error)
}

// EventPublisher публикует уведомление о заказе в указанный topic.
// После успешного возврата гарантируется доставка не менее одного раза.
type EventPublisher interface {
	Publish(topic string, orderID string) error
}

// Pricer вычисляет итоговую сумму заказа по позициям.
// Правила округления и валюты — ответственность реализации.
type Pricer interface {
	Total(items []OrderItem) (int64, error)
}
