// Package profile identifies which bank or service produced an export
// and proposes an initial column mapping for it.
package profile

import "strings"

// Profile names one known export layout. ProfileCustom is the generic
// fallback when no signature matches.
type Profile string

const (
	ProfileYNAB        Profile = "ynab"
	ProfileMint        Profile = "mint"
	ProfileMonarch     Profile = "monarch"
	ProfileEveryDollar Profile = "everydollar"
	ProfileAppleCard   Profile = "applecard"
	ProfileVenmo       Profile = "venmo"
	ProfilePayPal      Profile = "paypal"
	ProfileAmex        Profile = "amex"
	ProfileChase       Profile = "chase"
	ProfileCapitalOne  Profile = "capitalone"
	ProfileDiscover    Profile = "discover"
	ProfileBofA        Profile = "bankofamerica"
	ProfileWellsFargo  Profile = "wellsfargo"
	ProfileCiti        Profile = "citi"
	ProfileUSBank      Profile = "usbank"
	ProfilePNC         Profile = "pnc"
	ProfileAlly        Profile = "ally"
	ProfileChime       Profile = "chime"
	ProfileSchwab      Profile = "schwab"
	ProfileFidelity    Profile = "fidelity"
	ProfileCustom      Profile = "custom"
)

// header is a bank export's header row, lower-cased and trimmed.
type header []string

func newHeader(cells []string) header {
	h := make(header, len(cells))
	for i, c := range cells {
		h[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return h
}

// contains reports whether any cell contains sub.
func (h header) contains(sub string) bool {
	for _, c := range h {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

// exact reports whether any cell equals s.
func (h header) exact(s string) bool {
	for _, c := range h {
		if c == s {
			return true
		}
	}
	return false
}

// signatures is the ordered detection table. Signatures overlap (many
// banks export "debit"+"credit" columns), so evaluation order is a
// compatibility contract: the first match wins and entries must not be
// reordered.
var signatures = []struct {
	profile Profile
	match   func(h header) bool
}{
	{ProfileYNAB, func(h header) bool {
		return h.contains("outflow") && h.contains("inflow") && h.contains("payee")
	}},
	{ProfileAppleCard, func(h header) bool {
		return h.contains("clearing status") || (h.contains("merchant") && h.contains("purchased by"))
	}},
	{ProfilePayPal, func(h header) bool {
		return h.contains("gross") && h.contains("fee") && h.contains("net")
	}},
	{ProfileVenmo, func(h header) bool {
		return h.contains("funding source") || h.contains("amount (total)")
	}},
	{ProfileMint, func(h header) bool {
		return h.contains("original description") && h.contains("transaction type")
	}},
	{ProfileMonarch, func(h header) bool {
		return h.contains("merchant") && h.contains("original statement")
	}},
	{ProfileEveryDollar, func(h header) bool {
		return h.contains("budget group") || (h.contains("tracked") && h.contains("merchant"))
	}},
	{ProfileAmex, func(h header) bool {
		return h.contains("appears on your statement as") ||
			(h.contains("reference") && h.contains("card member"))
	}},
	{ProfileFidelity, func(h header) bool {
		return h.contains("run date") && h.contains("action")
	}},
	{ProfileSchwab, func(h header) bool {
		return h.contains("withdrawal") && h.contains("deposit") && h.contains("runningbalance")
	}},
	{ProfileChime, func(h header) bool {
		return h.contains("settlement date")
	}},
	{ProfileCapitalOne, func(h header) bool {
		return h.contains("transaction date") && h.contains("posted date") &&
			h.contains("debit") && h.contains("credit")
	}},
	{ProfileChase, func(h header) bool {
		return h.contains("posting date") && h.contains("details") && h.contains("balance")
	}},
	{ProfileDiscover, func(h header) bool {
		return h.contains("trans. date") ||
			(h.contains("transaction date") && h.contains("category") && h.contains("description"))
	}},
	{ProfileBofA, func(h header) bool {
		return h.contains("running bal")
	}},
	{ProfilePNC, func(h header) bool {
		return h.contains("withdrawals") && h.contains("deposits")
	}},
	{ProfileWellsFargo, func(h header) bool {
		return h.contains("master category") || (h.contains("check number") && h.contains("amount"))
	}},
	{ProfileUSBank, func(h header) bool {
		return h.contains("transaction") && h.contains("name") && h.contains("memo")
	}},
	{ProfileAlly, func(h header) bool {
		return h.contains("time") && h.contains("type") && h.contains("description")
	}},
	{ProfileCiti, func(h header) bool {
		return h.contains("debit") && h.contains("credit") && h.contains("status")
	}},
}

// Detect matches the header row against the signature table and
// returns the first matching profile, or ProfileCustom.
func Detect(headerRow []string) Profile {
	h := newHeader(headerRow)
	for _, sig := range signatures {
		if sig.match(h) {
			return sig.profile
		}
	}
	return ProfileCustom
}
