package ordering

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"qrmenu/internal/model"
)

// WhatsAppMessage renders the pre-filled chat message for a recorded order.
func WhatsAppMessage(lines []model.OrderLine, total decimal.Decimal, reference string) string {
	var b strings.Builder
	b.WriteString("مرحباً، أود طلب:\n")
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(l.Name)
		b.WriteString(" (")
		b.WriteString(strconv.Itoa(l.Quantity))
		b.WriteString(")")
	}
	b.WriteString("\n\nالإجمالي: ")
	b.WriteString(total.String())
	b.WriteString(" جـ\n\nرقم الطلب: ")
	b.WriteString(reference)
	return b.String()
}

// WhatsAppURL builds the wa.me link that opens a chat with number and message.
// Arabic-Indic digits are normalised and every other character is stripped.
func WhatsAppURL(number, message string) string {
	digits := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return -1
	}, number)
	return "https://wa.me/" + digits + "?" + url.Values{"text": {message}}.Encode()
}
