package quiz

import "github.com/Nomankaif/debtprotection-quiz/internal/models"

// FormatPhone lays digits over the country's display mask, e.g.
// "2125550100" becomes "(212) 555-0100" for +1. Mask characters are copied
// up to the first digit slot that has no digit left, so partial input keeps
// a trailing separator: "212" becomes "(212) ". Empty input gives "".
func FormatPhone(countryCode, digits string) string {
	c, ok := models.CountryByCode(countryCode)
	if !ok {
		c = models.Countries[0]
	}
	out := make([]byte, 0, len(c.Format))
	i := 0
	for j := 0; j < len(c.Format); j++ {
		ch := c.Format[j]
		if ch == 'X' {
			if i >= len(digits) {
				break
			}
			out = append(out, digits[i])
			i++
			continue
		}
		if len(digits) > 0 {
			out = append(out, ch)
		}
	}
	return string(out)
}
