package catalog

// DefaultServices is the course list seeded into an empty backend.
func DefaultServices() []Service {
	return []Service{
		{
			ID:              "slow-living",
			Title:           "慢養心得",
			Description:     "在快節奏的時代，我們練習慢下來。",
			IconType:        "Sprout",
			FullImage:       "https://images.unsplash.com/photo-1505330622279-bf7d7fc91cb4?auto=format&fit=crop&q=80&w=1200",
			LongDescription: "我們分享如何在日常生活中實踐「慢養」。",
			Details:         []string{"練習等待的藝術", "情緒調節"},
		},
		{
			ID:              "positive-discipline",
			Title:           "正向教養",
			Description:     "運用溫和而堅定的態度，建立相互尊重的親子關係。",
			IconType:        "Heart",
			FullImage:       "https://images.unsplash.com/photo-1628143769167-375971488c9f?auto=format&fit=crop&q=80&w=1200",
			LongDescription: "尋求「溫和」與「堅定」的平衡。",
			Details:         []string{"溫和而堅定的溝通", "家庭會議"},
		},
	}
}

// DefaultResources is the article list seeded into an empty backend.
func DefaultResources() []Resource {
	return []Resource{
		{
			ID:       "1",
			Category: CategoryParenting,
			Title:    "允許孩子慢慢來：等待的藝術",
			Summary:  "當我願意停下來等待，孩子眼裡的光芒是如此不同。",
			Image:    "https://picsum.photos/id/1060/800/600",
			Date:     "2023.10.15",
			Author:   "Iris",
			Tags:     []string{"慢養", "情緒調節"},
			Content:  []string{"「快一點！」這句話似乎成了現代父母的口頭禪。"},
		},
		{
			ID:       "2",
			Category: CategoryReading,
			Title:    "繪本中的溫柔力量",
			Summary:  "認識內心的小怪獸。",
			Image:    "https://picsum.photos/id/488/800/600",
			Date:     "2023.11.20",
			Author:   "Iris",
			Tags:     []string{"繪本", "共讀"},
			Content:  []string{"繪本不只是故事，更是一扇窗。"},
		},
	}
}
