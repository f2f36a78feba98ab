// Package ordering turns a cart into a recorded order through one of the
// tenant's ordering channels.
package ordering

import (
	"regexp"
	"strings"

	"qrmenu/internal/cart"
	"qrmenu/internal/model"
)

// Channel is an order submission path.
type Channel string

const (
	ChannelTable    Channel = "table"
	ChannelWebsite  Channel = "website"
	ChannelWhatsApp Channel = "whatsapp"
)

// Tenant is the ordering configuration of a menu owner.
type Tenant struct {
	ID              string
	Username        string
	AcceptsWebsite  bool
	AcceptsWhatsApp bool
	AcceptsTable    bool
	WhatsAppNumber  string
	ContactMessage  string
}

// TenantFromAdmin extracts the ordering configuration of an admin.
func TenantFromAdmin(a *model.Admin) Tenant {
	return Tenant{
		ID:              a.ID.String(),
		Username:        a.Username,
		AcceptsWebsite:  a.IsAcceptingOrders,
		AcceptsWhatsApp: a.IsAcceptingOrdersViaWhatsapp,
		AcceptsTable:    a.IsAcceptingTableOrders,
		WhatsAppNumber:  a.WhatsappNumber,
		ContactMessage:  a.ContactMessage,
	}
}

// ShowsContactMessage reports whether the contact message replaces the order
// button. It is shown only outside a table, when neither website nor WhatsApp
// ordering is switched on. A table with table ordering off, or WhatsApp on
// without a number, shows neither.
func ShowsContactMessage(t Tenant, scope cart.Scope) bool {
	return !scope.HasTable() && !t.AcceptsWebsite && !t.AcceptsWhatsApp && strings.TrimSpace(t.ContactMessage) != ""
}

// AvailableChannels lists the channels open for scope, in precedence order.
// An active table channel excludes the others.
func AvailableChannels(t Tenant, scope cart.Scope) []Channel {
	if scope.HasTable() && t.AcceptsTable {
		return []Channel{ChannelTable}
	}
	var out []Channel
	if t.AcceptsWebsite {
		out = append(out, ChannelWebsite)
	}
	if t.AcceptsWhatsApp && strings.TrimSpace(t.WhatsAppNumber) != "" {
		out = append(out, ChannelWhatsApp)
	}
	return out
}

// Segment is a piece of a contact message: plain text or a WhatsApp link.
type Segment struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

var waLinkPattern = regexp.MustCompile(`(?:https?://)?wa\.me/(\d+)`)

// ContactSegments splits a contact message so wa.me/<digits> references can be
// rendered as links.
func ContactSegments(message string) []Segment {
	var out []Segment
	last := 0
	for _, m := range waLinkPattern.FindAllStringSubmatchIndex(message, -1) {
		if m[0] > last {
			out = append(out, Segment{Text: message[last:m[0]]})
		}
		number := message[m[2]:m[3]]
		out = append(out, Segment{Text: message[m[0]:m[1]], Link: "https://wa.me/" + number})
		last = m[1]
	}
	if last < len(message) {
		out = append(out, Segment{Text: message[last:]})
	}
	return out
}
