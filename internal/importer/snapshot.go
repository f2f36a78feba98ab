// Package importer moves a legacy menu-database.json snapshot into PostgreSQL.
package importer

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// Snapshot is the legacy single-document database.
type Snapshot struct {
	Admins []LegacyAdmin `json:"admins"`
	Lists  []LegacyList  `json:"lists"`
	Items  []LegacyItem  `json:"items"`
}

// LegacyAdmin is a tenant as stored in the snapshot, password in plain text.
type LegacyAdmin struct {
	ID                           string `json:"id"`
	Username                     string `json:"username"`
	Password                     string `json:"password"`
	LogoURL                      string `json:"logoUrl"`
	BackgroundURL                string `json:"backgroundUrl"`
	Theme                        string `json:"theme"`
	WelcomeMessage               string `json:"welcomeMessage"`
	ContactMessage               string `json:"contactMessage"`
	WhatsappNumber               string `json:"whatsappNumber"`
	IsAcceptingOrders            bool   `json:"isAcceptingOrders"`
	IsAcceptingOrdersViaWhatsapp bool   `json:"isAcceptingOrdersViaWhatsapp"`
	IsAcceptingTableOrders       bool   `json:"isAcceptingTableOrders"`
}

// LegacyList is a menu section.
type LegacyList struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ItemType string `json:"itemType"`
	AdminID  string `json:"adminId"`
}

// LegacyItem is a menu entry.
type LegacyItem struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice"`
	Description     string           `json:"description"`
	ImageURL        string           `json:"imageUrl"`
	ListID          string           `json:"listId"`
}

var gzipMagic = []byte{0x1f, 0x8b}

// Decode reads a snapshot, gunzipping it first when it starts with the gzip
// magic bytes.
func Decode(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)

	var src io.Reader = br
	if head, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	var snap Snapshot
	if err := json.NewDecoder(src).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Merge concatenates snapshots in order.
func Merge(snaps ...*Snapshot) *Snapshot {
	out := &Snapshot{}
	for _, s := range snaps {
		if s == nil {
			continue
		}
		out.Admins = append(out.Admins, s.Admins...)
		out.Lists = append(out.Lists, s.Lists...)
		out.Items = append(out.Items, s.Items...)
	}
	return out
}
