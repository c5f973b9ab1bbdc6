package enhancer

import (
	"net/url"
	"strings"
)

var searchURLs = map[string]string{
	"哔哩哔哩":             "https://search.bilibili.com/all?keyword=%s",
	"豆瓣":               "https://search.douban.com/movie/subject_search?search_text=%s",
	"爱奇艺":              "https://so.iqiyi.com/so/q_%s",
	"腾讯视频":             "https://v.qq.com/x/search/?q=%s",
	"淘宝":               "https://s.taobao.com/search?q=%s",
	"京东":               "https://search.jd.com/Search?keyword=%s",
	"拼多多":              "https://mobile.yangkeduo.com/search_result.html?search_key=%s",
	"美团":               "https://www.meituan.com/s/%s",
	"大众点评":             "https://www.dianping.com/search/keyword/1/0_%s",
	"饿了么":              "https://www.ele.me/search?keyword=%s",
	"携程":               "https://you.ctrip.com/globalsearch/?keyword=%s",
	"马蜂窝":              "https://www.mafengwo.cn/search/q.php?q=%s",
	"高德地图":             "https://www.amap.com/search?query=%s",
	"Keep":             "https://www.gotokeep.com/search?keyword=%s",
	"小红书":              "https://www.xiaohongshu.com/search_result?keyword=%s",
	"YouTube":          "https://www.youtube.com/results?search_query=%s",
	"Netflix":          "https://www.netflix.com/search?q=%s",
	"Spotify":          "https://open.spotify.com/search/%s",
	"IMDb":             "https://www.imdb.com/find/?q=%s",
	"Amazon":           "https://www.amazon.com/s?k=%s",
	"eBay":             "https://www.ebay.com/sch/i.html?_nkw=%s",
	"Etsy":             "https://www.etsy.com/search?q=%s",
	"Google Maps":      "https://www.google.com/maps/search/%s",
	"Yelp":             "https://www.yelp.com/search?find_desc=%s",
	"DoorDash":         "https://www.doordash.com/search/store/%s",
	"Uber Eats":        "https://www.ubereats.com/search?q=%s",
	"Fantuan Delivery": "https://www.fantuanorder.com/search?keyword=%s",
	"HungryPanda":      "https://www.hungrypanda.co/search?keyword=%s",
	"Booking.com":      "https://www.booking.com/searchresults.html?ss=%s",
	"Airbnb":           "https://www.airbnb.com/s/%s/homes",
	"Expedia":          "https://www.expedia.com/Hotel-Search?destination=%s",
	"TripAdvisor":      "https://www.tripadvisor.com/Search?q=%s",
	"Klook":            "https://www.klook.com/search/result/?query=%s",
	"Strava":           "https://www.strava.com/search?query=%s",
}

// SearchLink строит URL поиска query на платформе. Для неизвестных платформ
// используется поисковик для локали.
func SearchLink(platform, query, locale string) string {
	pattern, ok := searchURLs[platform]
	if !ok {
		if normLocale(locale) == "zh" {
			pattern = "https://www.baidu.com/s?wd=%s"
		} else {
			pattern = "https://www.google.com/search?q=%s"
		}
	}
	return sprintfEscaped(pattern, query)
}

// sprintfEscaped подставляет экранированный запрос вместо %s в pattern.
// Шаблоны с путем получают PathEscape, шаблоны с query получают QueryEscape.
func sprintfEscaped(pattern, query string) string {
	i := strings.Index(pattern, "%s")
	if i < 0 {
		return pattern
	}
	prefix := pattern[:i]
	escaped := url.PathEscape(query)
	if strings.ContainsAny(prefix, "?=") {
		escaped = url.QueryEscape(query)
	}
	return prefix + escaped + pattern[i+2:]
}
