package domain

import "time"

// OrderItem представляет одну позицию заказа (напиток из меню).
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// Name — название напитка из меню.
	Name string
	// PriceMinor — цена в минимальных денежных единицах (центы/копейки).
	PriceMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует состояние кофейного заказа.
// Customer и Items неизменяемы после создания; State двигается только вперёд.
type Order struct {
	ID         string
	Customer   string
	State      OrderState
	Currency   string
	TotalMinor int64
	// Waiter — идентификатор экземпляра сервиса, обслужившего заказ.
	Waiter string
	// DiscountPct — скидочный множитель в процентах, применённый при создании.
	DiscountPct int64
	Items       []OrderItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.Customer == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrTotalNegative)
	}
	if !o.State.Valid() {
		errs = append(errs, ErrUnknownState)
	}

	for _, item := range o.Items {
		if item.Name == "" {
			errs = append(errs, ErrItemNameRequired)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
