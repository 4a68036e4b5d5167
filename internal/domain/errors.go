package domain

import "errors"

var (
	// Ошибка отсутствующего имени клиента.
	ErrCustomerRequired = errors.New("customer is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отсутствующего названия напитка.
	ErrItemNameRequired = errors.New("item name is required")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отрицательной итоговой суммы.
	ErrTotalNegative = errors.New("order total must be non-negative")
	// ErrUnknownState возвращается при разборе неизвестного состояния заказа.
	ErrUnknownState = errors.New("unknown order state")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
)

// IsValidation проверяет, относится ли ошибка к нарушению входных инвариантов заказа.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrCustomerRequired,
		ErrItemsRequired,
		ErrItemNameRequired,
		ErrItemPriceInvalid,
		ErrTotalNegative,
		ErrUnknownState,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
