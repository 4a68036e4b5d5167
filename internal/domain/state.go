package domain

import "fmt"

// OrderState описывает жизненный цикл кофейного заказа.
// Значения упорядочены: заказ может двигаться только вперёд по циклу.
type OrderState int

const (
	// OrderStateInit — заказ создан, оплата ещё не получена.
	OrderStateInit OrderState = iota
	// OrderStatePaid — заказ оплачен, можно передавать бариста.
	OrderStatePaid
	// OrderStateBrewing — бариста готовит заказ.
	OrderStateBrewing
	// OrderStateBrewed — кофе готов, ожидает выдачи.
	OrderStateBrewed
	// OrderStateTaken — заказ забран клиентом.
	OrderStateTaken
)

var stateNames = map[OrderState]string{
	OrderStateInit:    "INIT",
	OrderStatePaid:    "PAID",
	OrderStateBrewing: "BREWING",
	OrderStateBrewed:  "BREWED",
	OrderStateTaken:   "TAKEN",
}

// String возвращает каноническое имя состояния.
func (s OrderState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Valid сообщает, является ли значение одним из известных состояний.
func (s OrderState) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// ParseOrderState разбирает каноническое имя состояния.
func ParseOrderState(name string) (OrderState, error) {
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// CanTransition проверяет допустимость перехода: состояние может только
// строго возрастать. Переход в равное или более раннее состояние запрещён.
// Пропуск промежуточных состояний допустим (INIT -> TAKEN проходит проверку).
func CanTransition(current, requested OrderState) bool {
	return requested > current
}
