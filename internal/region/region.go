// Package region определяет регион развертывания сервиса.
//
// RandomLife развернут дважды: CN работает с CloudBase, WeChat Pay
// и Alipay, INTL работает с Supabase, Stripe и PayPal.
package region

import (
	"errors"
	"fmt"
	"strings"
)

// Region тег региона развертывания.
type Region string

const (
	// CN развертывание для материкового Китая на CloudBase.
	CN Region = "CN"
	// INTL международное развертывание на Supabase.
	INTL Region = "INTL"
)

// ErrUnknownRegion возвращает Parse для нераспознанного флага.
var ErrUnknownRegion = errors.New("unknown deployment region")

// Parse переводит флаг развертывания в Region. Пустой флаг означает INTL.
func Parse(flag string) (Region, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "cn", "china", "zh":
		return CN, nil
	case "", "intl", "international", "global", "en":
		return INTL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, flag)
	}
}

// FromLanguage угадывает регион по заголовку в стиле Accept-Language.
// Учитывается только первый языковой тег.
func FromLanguage(acceptLanguage string) Region {
	first := strings.TrimSpace(strings.Split(acceptLanguage, ",")[0])
	if idx := strings.Index(first, ";"); idx > 0 {
		first = first[:idx]
	}
	if strings.HasPrefix(strings.ToLower(first), "zh") {
		return CN
	}
	return INTL
}

// Valid проверяет, что r известный регион.
func (r Region) Valid() bool {
	return r == CN || r == INTL
}

// Locale возвращает локаль контента по умолчанию для региона.
func (r Region) Locale() string {
	if r == CN {
		return "zh"
	}
	return "en"
}

// Currency возвращает ISO-код валюты для оплаты.
func (r Region) Currency() string {
	if r == CN {
		return "CNY"
	}
	return "USD"
}

// Providers перечисляет платежных провайдеров, разрешенных в регионе.
func (r Region) Providers() []string {
	if r == CN {
		return []string{"wechat", "alipay"}
	}
	return []string{"stripe", "paypal"}
}

// AllowsProvider проверяет, можно ли использовать провайдера в регионе.
func (r Region) AllowsProvider(name string) bool {
	for _, p := range r.Providers() {
		if p == name {
			return true
		}
	}
	return false
}

func (r Region) String() string {
	return string(r)
}
