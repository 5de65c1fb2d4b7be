package wage

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var wonPrinter = message.NewPrinter(language.Korean)

// FormatWon: 483500 → "483,500원"
func FormatWon(amount int64) string {
	return wonPrinter.Sprintf("%d원", amount)
}
