package config

// CategoryWeights orders help categories; unknown categories sort last by name.
var CategoryWeights = map[string]int{
	"Help":       0,
	"Utility":    10,
	"Fun":        20,
	"Moderation": 30,
	"Settings":   50,
	"Dev":        60,
}

// CategoryWeight returns the weight of category, or a value past every known one.
func CategoryWeight(category string) int {
	if w, ok := CategoryWeights[category]; ok {
		return w
	}
	return 1000
}
