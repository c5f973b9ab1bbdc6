// Package enhancer дорабатывает сгенерированные рекомендации: убирает
// повторы, назначает каждой платформу, делает поисковые запросы конкретными
// и строит внешнюю ссылку. Все на таблицах.
package enhancer

import (
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// Значения Client, которые присылают приложения.
const (
	ClientWeb     = "web"
	ClientAndroid = "android"
	ClientIOS     = "ios"
)

var platformTable = map[string]map[models.Category][]string{
	"zh": {
		models.CategoryEntertainment: {"哔哩哔哩", "豆瓣", "爱奇艺", "腾讯视频"},
		models.CategoryShopping:      {"淘宝", "京东", "拼多多"},
		models.CategoryFood:          {"美团", "大众点评", "饿了么"},
		models.CategoryTravel:        {"携程", "马蜂窝", "高德地图"},
		models.CategoryFitness:       {"Keep", "哔哩哔哩", "小红书"},
	},
	"en": {
		models.CategoryEntertainment: {"YouTube", "Netflix", "Spotify", "IMDb"},
		models.CategoryShopping:      {"Amazon", "eBay", "Etsy"},
		models.CategoryFood:          {"Google Maps", "Yelp", "DoorDash", "Uber Eats"},
		models.CategoryTravel:        {"Booking.com", "TripAdvisor", "Google Maps", "Airbnb"},
		models.CategoryFitness:       {"YouTube", "Strava", "Google Maps"},
	},
}

var intlAndroidFood = []string{"DoorDash", "DoorDash", "Uber Eats", "Uber Eats", "Fantuan Delivery", "HungryPanda"}

var intlAndroidTravel = []string{"Booking.com", "Airbnb", "Expedia", "TripAdvisor", "Google Maps", "Klook"}

func normLocale(locale string) string {
	if locale == "zh" {
		return "zh"
	}
	return "en"
}

func isIntlAndroid(locale, client string) bool {
	return normLocale(locale) == "en" && client == ClientAndroid
}

// PlatformsFor возвращает таблицу платформ категории для локали.
func PlatformsFor(category models.Category, locale string) []string {
	if p, ok := platformTable[normLocale(locale)][category]; ok {
		return p
	}
	return platformTable[normLocale(locale)][models.CategoryEntertainment]
}

// TravelPlatformOverride возвращает фиксированную travel-платформу для INTL android.
// ok равен false, если подмена не применяется.
func TravelPlatformOverride(locale, client string, index int) (string, bool) {
	if !isIntlAndroid(locale, client) || index < 0 {
		return "", false
	}
	return intlAndroidTravel[index%len(intlAndroidTravel)], true
}

// PlatformFor выбирает платформу для элемента с индексом index.
func PlatformFor(category models.Category, locale, client string, index int) string {
	if index < 0 {
		index = 0
	}
	if category == models.CategoryFood && isIntlAndroid(locale, client) {
		return intlAndroidFood[index%len(intlAndroidFood)]
	}
	if category == models.CategoryTravel {
		if p, ok := TravelPlatformOverride(locale, client, index); ok {
			return p
		}
	}
	table := PlatformsFor(category, locale)
	return table[index%len(table)]
}
