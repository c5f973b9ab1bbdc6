package enhancer

import (
	"github.com/magabrotheeeer/randomlife/internal/models"
)

type canned struct {
	title, description, query string
	tags                      []string
}

var fallbackPool = map[string]map[models.Category][]canned{
	"en": {
		models.CategoryEntertainment: {
			{"Dune: Part Two", "Epic sci-fi sequel worth a big screen night.", "Dune Part Two", []string{"movie", "sci-fi"}},
			{"The Bear", "Fast paced kitchen drama, perfect for a binge.", "The Bear season 1", []string{"series", "drama"}},
			{"Taylor Swift: The Eras Tour", "Concert film for a sing-along evening.", "The Eras Tour concert film", []string{"music", "concert"}},
			{"Hades", "Roguelike game with great story and combat.", "Hades game", []string{"game", "indie"}},
			{"Serial podcast", "Classic true crime podcast for the commute.", "Serial podcast season 1", []string{"podcast", "true-crime"}},
			{"Everything Everywhere All at Once", "Multiverse comedy with heart.", "Everything Everywhere All at Once", []string{"movie", "comedy"}},
		},
		models.CategoryShopping: {
			{"Stanley Quencher tumbler", "Keeps drinks cold all day.", "Stanley Quencher 40 oz", []string{"home", "drinkware"}},
			{"Kindle Paperwhite", "Glare free reading anywhere.", "Kindle Paperwhite", []string{"tech", "reading"}},
			{"Lodge cast iron skillet", "A pan that lasts a lifetime.", "Lodge 10 inch cast iron skillet", []string{"kitchen", "cooking"}},
			{"Sony WH-1000XM5", "Noise cancelling headphones for focus.", "Sony WH-1000XM5", []string{"tech", "audio"}},
			{"Allbirds Tree Runners", "Light everyday sneakers.", "Allbirds Tree Runners", []string{"fashion", "shoes"}},
			{"LEGO Botanical bouquet", "Build a flower set that never wilts.", "LEGO Botanical Flower Bouquet", []string{"hobby", "gift"}},
		},
		models.CategoryFood: {
			{"Nashville hot chicken", "Crispy, fiery and served on white bread with pickles.", "Nashville hot chicken sandwich", []string{"spicy", "chicken"}},
			{"Tonkotsu ramen", "Rich pork broth noodles for a cozy dinner.", "tonkotsu ramen", []string{"noodles", "japanese"}},
			{"Birria tacos", "Slow braised beef tacos with consommé for dipping.", "birria tacos", []string{"mexican", "tacos"}},
			{"Margherita pizza", "Wood fired classic with fresh basil.", "margherita pizza", []string{"italian", "pizza"}},
			{"Pho bo", "Aromatic beef noodle soup.", "beef pho", []string{"vietnamese", "soup"}},
			{"Poke bowl", "Fresh ahi tuna over rice.", "ahi poke bowl", []string{"healthy", "seafood"}},
		},
		models.CategoryTravel: {
			{"Nashville weekend", "Live music on Broadway and hot chicken.", "Nashville weekend getaway", []string{"city", "music"}},
			{"Banff National Park", "Turquoise lakes and mountain hikes.", "Banff National Park", []string{"nature", "hiking"}},
			{"Kyoto temples", "Autumn leaves around Kiyomizu-dera.", "Kyoto Kiyomizu-dera", []string{"culture", "japan"}},
			{"Lisbon food tour", "Pastel de nata and tram rides.", "Lisbon food tour", []string{"city", "food"}},
			{"Santorini sunset", "Whitewashed villages over the caldera.", "Oia Santorini", []string{"beach", "romantic"}},
			{"Iceland ring road", "Waterfalls, glaciers and hot springs.", "Iceland ring road trip", []string{"road-trip", "nature"}},
		},
		models.CategoryFitness: {
			{"20 minute HIIT", "Short bodyweight session, no equipment.", "20 minute HIIT workout", []string{"hiit", "home"}},
			{"Couch to 5K", "Beginner running plan, week one.", "couch to 5k week 1", []string{"running", "beginner"}},
			{"Yoga with Adriene", "Gentle morning flow.", "Yoga with Adriene morning", []string{"yoga", "stretching"}},
			{"Kettlebell swings", "Posterior chain power in ten minutes.", "kettlebell swing workout", []string{"strength", "kettlebell"}},
			{"Trail hike", "Get outside for a loop near you.", "easy trail hike", []string{"outdoor", "hiking"}},
			{"Pilates core", "Mat pilates for a stronger core.", "mat pilates core workout", []string{"pilates", "core"}},
		},
	},
	"zh": {
		models.CategoryEntertainment: {
			{"流浪地球2", "国产科幻大片，适合周末观影。", "流浪地球2", []string{"电影", "科幻"}},
			{"繁花", "沪语年代剧，质感十足。", "繁花 电视剧", []string{"剧集", "年代"}},
			{"黑神话：悟空", "国产动作游戏，体验西游世界。", "黑神话悟空", []string{"游戏", "动作"}},
			{"乐队的夏天", "轻松的音乐综艺。", "乐队的夏天", []string{"综艺", "音乐"}},
			{"三体 有声书", "通勤路上听完经典科幻。", "三体 有声书", []string{"有声书", "科幻"}},
			{"脱口秀大会", "下班后笑一笑。", "脱口秀大会", []string{"综艺", "喜剧"}},
		},
		models.CategoryShopping: {
			{"小米手环9", "轻巧的运动健康手环。", "小米手环9", []string{"数码", "运动"}},
			{"九阳豆浆机", "早餐现磨豆浆。", "九阳豆浆机", []string{"家电", "厨房"}},
			{"故宫文创书签", "有文化气息的小礼物。", "故宫文创 书签", []string{"文创", "礼物"}},
			{"李宁跑鞋 赤兔", "性价比高的日常跑鞋。", "李宁 赤兔7", []string{"运动", "鞋"}},
			{"无印良品香薰机", "让房间放松下来。", "无印良品 香薰机", []string{"家居", "香薰"}},
			{"Kindle 电子书阅读器", "随时随地阅读。", "Kindle 阅读器", []string{"数码", "阅读"}},
		},
		models.CategoryFood: {
			{"重庆火锅", "麻辣牛油锅底配毛肚鸭肠。", "重庆火锅", []string{"麻辣", "火锅"}},
			{"兰州牛肉面", "一清二白三红四绿。", "兰州牛肉面", []string{"面食", "清真"}},
			{"广式早茶", "虾饺烧卖肠粉。", "广式早茶 虾饺", []string{"粤菜", "早茶"}},
			{"烤鸭", "皮脆肉嫩，卷饼蘸酱。", "北京烤鸭", []string{"京菜", "烤鸭"}},
			{"螺蛳粉", "酸辣鲜香，越吃越香。", "柳州螺蛳粉", []string{"粉", "酸辣"}},
			{"生煎包", "底脆汁多的上海早点。", "上海生煎包", []string{"小吃", "早点"}},
		},
		models.CategoryTravel: {
			{"西湖", "断桥与苏堤，春夏皆宜。", "杭州西湖", []string{"城市", "湖泊"}},
			{"张家界", "奇峰林立的国家森林公园。", "张家界国家森林公园", []string{"自然", "徒步"}},
			{"大理古城", "苍山洱海，慢生活。", "大理古城 洱海", []string{"古镇", "休闲"}},
			{"西安城墙", "骑行古城墙看夕阳。", "西安城墙 骑行", []string{"历史", "骑行"}},
			{"厦门鼓浪屿", "海岛小巷与琴声。", "厦门鼓浪屿", []string{"海岛", "文艺"}},
			{"哈尔滨冰雪大世界", "冬季限定的冰雕盛宴。", "哈尔滨冰雪大世界", []string{"冬季", "冰雪"}},
		},
		models.CategoryFitness: {
			{"帕梅拉 燃脂操", "20分钟居家燃脂。", "帕梅拉 燃脂", []string{"居家", "燃脂"}},
			{"八段锦", "舒缓的传统养生功法。", "八段锦 教学", []string{"养生", "舒缓"}},
			{"夜跑5公里", "下班后配速跑。", "夜跑 5公里 配速", []string{"跑步", "户外"}},
			{"跳绳挑战", "1000个跳绳打卡。", "跳绳 1000个", []string{"跳绳", "有氧"}},
			{"瑜伽拉伸", "睡前放松肩颈。", "睡前瑜伽 拉伸", []string{"瑜伽", "拉伸"}},
			{"飞盘", "周末约朋友去公园。", "飞盘 入门", []string{"户外", "社交"}},
		},
	},
}

// FallbackPool возвращает заготовленные рекомендации на случай недоступности
// модели. Результат новый слайс, вызывающий может его менять.
func FallbackPool(category models.Category, locale string) []models.Recommendation {
	items := fallbackPool[normLocale(locale)][category]
	out := make([]models.Recommendation, 0, len(items))
	for _, c := range items {
		out = append(out, models.Recommendation{
			Category:    category,
			Title:       c.title,
			Description: c.description,
			SearchQuery: c.query,
			Tags:        append([]string(nil), c.tags...),
		})
	}
	return out
}
