package service

// fallbackFacts 是生成服务不可用时使用的人工整理事实列表。
var fallbackFacts = []string{
	"1947: India gained independence from British rule on August 15, marking the end of nearly 200 years of colonial governance under the leadership of Mahatma Gandhi and the freedom movement.",
	"1969: The Indian Space Research Organisation (ISRO) was established, leading to India becoming the fourth country to reach Mars with its Mangalyaan mission in 2014.",
	"1983: India won its first Cricket World Cup under the captaincy of Kapil Dev, defeating the West Indies in a historic final at Lord's Cricket Ground.",
	"1930: Chandrasekhara Venkata Raman won the Nobel Prize in Physics for his work on light scattering, becoming the first Asian to receive a Nobel Prize in science.",
	"1973: Amitabh Bachchan starred in 'Zanjeer', marking the beginning of his legendary career as the 'Angry Young Man' of Bollywood cinema.",
	"1999: Kargil War concluded with Indian victory, demonstrating the valor of the Indian Armed Forces in defending the nation's sovereignty.",
	"2008: A.R. Rahman won Academy Awards for Best Original Score and Best Original Song for 'Slumdog Millionaire', bringing global recognition to Indian music.",
	"1996: Leander Paes won the bronze medal in tennis at the Atlanta Olympics, becoming the first Indian to win an individual Olympic medal in 44 years.",
	"1913: Rabindranath Tagore became the first non-European to win the Nobel Prize in Literature for his collection of poems 'Gitanjali'.",
	"2014: Narendra Modi became Prime Minister, launching initiatives like Digital India and Make in India to transform the country's technological landscape.",
}

// SelectFallback 按 (month + day + minute) mod len 选出一条兜底事实。
// 同一分钟内对同一日期的请求总会得到同一条。
func SelectFallback(month, day, minute int) string {
	idx := (month + day + minute) % len(fallbackFacts)
	if idx < 0 {
		idx += len(fallbackFacts)
	}
	return fallbackFacts[idx]
}

// FallbackFacts 返回兜底列表的副本。
func FallbackFacts() []string {
	out := make([]string, len(fallbackFacts))
	copy(out, fallbackFacts)
	return out
}
