package cards

// DefaultEffect is the built-in effect label for gem ids 1-24.
func DefaultEffect(id int) string {
	switch {
	case id >= 1 && id <= 6:
		return "+ 100 ATK"
	case id >= 7 && id <= 12:
		return "Pair + 200 ATK"
	case id >= 13 && id <= 18:
		return "+ 1 Mult"
	case id >= 19 && id <= 24:
		return "Pair + 2 Mult"
	}
	return ""
}
