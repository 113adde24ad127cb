package aggregation

// ImpliedProbability converts an American price to the win probability it
// implies: 100/(price+100) for price >= 0 and -price/(-price+100) below zero.
// +100 and -100 both give 0.5.
func ImpliedProbability(price float64) float64 {
	if price >= 0 {
		return 100 / (price + 100)
	}
	return -price / (-price + 100)
}
