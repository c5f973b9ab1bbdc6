package enhancer

import (
	"strings"

	"github.com/magabrotheeeer/randomlife/internal/models"
)

// Options описывает аудиторию пачки.
type Options struct {
	Category models.Category
	Locale   string
	Client   string
	Count    int
}

func titleKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// EnforceDiversity выкидывает элементы, чей заголовок повторяется в пачке или
// есть в recentTitles, затем добирает пачку из fallback по тому же правилу.
// Если пачка все еще неполная, берутся недавно показанные элементы fallback,
// чтобы пачка никогда не возвращалась пустой. В результате не больше
// count элементов.
func EnforceDiversity(items []models.Recommendation, recentTitles []string, fallback []models.Recommendation, count int) []models.Recommendation {
	recent := make(map[string]struct{}, len(recentTitles))
	for _, t := range recentTitles {
		recent[titleKey(t)] = struct{}{}
	}

	batch := make(map[string]struct{}, count)
	out := make([]models.Recommendation, 0, count)
	add := func(src []models.Recommendation, skipRecent bool) {
		for _, it := range src {
			if len(out) >= count {
				return
			}
			k := titleKey(it.Title)
			if k == "" {
				continue
			}
			if _, dup := batch[k]; dup {
				continue
			}
			if _, seen := recent[k]; seen && skipRecent {
				continue
			}
			batch[k] = struct{}{}
			out = append(out, it)
		}
	}
	add(items, true)
	add(fallback, true)
	add(fallback, false)
	return out
}

// Enhance проставляет платформы, конкретные запросы и ссылки на месте.
func Enhance(items []models.Recommendation, opts Options) []models.Recommendation {
	intlAndroid := isIntlAndroid(opts.Locale, opts.Client)
	for i := range items {
		it := &items[i]
		it.Category = opts.Category
		it.Platform = PlatformFor(opts.Category, opts.Locale, opts.Client, i)
		if intlAndroid {
			it.SearchQuery = EnforceConcreteIntlAndroidSearchQuery(opts.Category, it.SearchQuery, it.Title)
		} else if strings.TrimSpace(it.SearchQuery) == "" {
			it.SearchQuery = it.Title
		}
		it.Link = SearchLink(it.Platform, it.SearchQuery, opts.Locale)
	}
	return items
}
