package domain

// DiscountPricer считает сумму позиций и применяет процентный множитель
// с округлением half-up. DiscountPct=100 означает отсутствие скидки,
// 95 — пять процентов скидки.
type DiscountPricer struct {
	DiscountPct int64
}

// NewDiscountPricer создаёт прайсер с заданным множителем; некорректный
// множитель заменяется на 100 (без скидки).
func NewDiscountPricer(discountPct int64) *DiscountPricer {
	if discountPct <= 0 {
		discountPct = 100
	}
	return &DiscountPricer{DiscountPct: discountPct}
}

// Total возвращает сумму всех позиций, умноженную на множитель и
// поделённую на 100 с округлением half-up.
func (p *DiscountPricer) Total(items []OrderItem) (int64, error) {
	var sum int64
	for _, item := range items {
		if item.PriceMinor < 0 {
			return 0, ErrItemPriceInvalid
		}
		sum += item.PriceMinor
	}

	scaled := sum * p.DiscountPct
	total := scaled / 100
	if scaled%100 >= 50 {
		total++
	}
	return total, nil
}

var _ Pricer = (*DiscountPricer)(nil)
