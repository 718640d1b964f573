package locale

// pluralSuffix picks the plural form key suffix for count in lang.
//
// Russian uses a three-way rule; Polish uses its own three-way rule keyed on
// the last digit; everything else (including unknown languages) is the plain
// one/many split.
func pluralSuffix(lang string, count int) string {
	switch lang {
	case "ru":
		return russianSuffix(count)
	case "pl":
		return polishSuffix(count)
	default:
		if count == 1 {
			return "one"
		}
		return "many"
	}
}

func russianSuffix(count int) string {
	switch {
	case count == 1:
		return "one"
	case count > 2 && count <= 4:
		return "few"
	default:
		return "many"
	}
}

func polishSuffix(count int) string {
	if count == 1 {
		return "one"
	}
	last := count % 10
	hundred := count % 100
	if last >= 2 && last <= 4 && !(hundred >= 10 && hundred < 20) {
		return "few"
	}
	return "many"
}
