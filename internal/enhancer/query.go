package enhancer

import (
	"strings"

	"github.com/magabrotheeeer/randomlife/internal/models"
)

// concreteFoodQuery заменяет общие запросы еды в INTL android.
const concreteFoodQuery = "Nashville hot chicken sandwich"

var genericQueries = map[models.Category][]string{
	models.CategoryFood:          {"food delivery near me", "food near me", "restaurants near me", "delivery near me", "takeout", "food delivery", "restaurants"},
	models.CategoryTravel:        {"hotels near me", "things to do near me", "travel deals", "vacation ideas", "hotels"},
	models.CategoryShopping:      {"deals", "shopping", "best deals", "gift ideas", "things to buy"},
	models.CategoryEntertainment: {"movies", "things to watch", "music", "new movies", "entertainment"},
	models.CategoryFitness:       {"workout", "gym near me", "exercise", "fitness", "workouts"},
}

var concreteFallback = map[models.Category]string{
	models.CategoryTravel:        "Nashville weekend getaway",
	models.CategoryShopping:      "Stanley Quencher tumbler",
	models.CategoryEntertainment: "Dune Part Two",
	models.CategoryFitness:       "20 minute HIIT workout",
}

// IsGenericQuery проверяет, является ли query известной заглушкой.
func IsGenericQuery(category models.Category, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, g := range genericQueries[category] {
		if q == g {
			return true
		}
	}
	return false
}

// EnforceConcreteIntlAndroidSearchQuery заменяет общий поисковый запрос
// конкретным. Еда всегда получает фиксированное блюдо. Остальные категории
// берут заголовок элемента, затем заготовленный запрос.
func EnforceConcreteIntlAndroidSearchQuery(category models.Category, query, title string) string {
	if !IsGenericQuery(category, query) {
		return strings.TrimSpace(query)
	}
	if category == models.CategoryFood {
		return concreteFoodQuery
	}
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if f, ok := concreteFallback[category]; ok {
		return f
	}
	return strings.TrimSpace(query)
}
