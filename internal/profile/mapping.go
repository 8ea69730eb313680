package profile

import (
	"strings"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// rule assigns tag to the first currently-unmapped column whose header
// matches: the exact texts are tried before the substring texts, each
// in declared order.
type rule struct {
	tag      model.FieldTag
	exact    []string
	contains []string
}

// genericRules seed a mapping when no profile-specific layout is
// known. They also back ProfileCustom.
var genericRules = []rule{
	{tag: model.FieldDate, exact: []string{"date", "transaction date", "posted date"}, contains: []string{"date"}},
	{tag: model.FieldPayee, exact: []string{"payee", "merchant", "name"}, contains: []string{"payee", "merchant"}},
	{tag: model.FieldAmount, exact: []string{"amount"}, contains: []string{"amount"}},
	{tag: model.FieldInflow, exact: []string{"inflow", "credit", "deposit"}, contains: []string{"inflow", "deposit"}},
	{tag: model.FieldOutflow, exact: []string{"outflow", "debit", "withdrawal"}, contains: []string{"outflow", "withdrawal"}},
	{tag: model.FieldMemo, exact: []string{"memo", "notes", "note"}, contains: []string{"memo"}},
	{tag: model.FieldCategory, exact: []string{"category"}, contains: []string{"category"}},
	{tag: model.FieldAccount, exact: []string{"account", "account name"}, contains: []string{"account"}},
	{tag: model.FieldTags, exact: []string{"tags", "labels"}, contains: []string{"tag"}},
	{tag: model.FieldStatus, exact: []string{"status", "cleared"}, contains: []string{"status"}},
	{tag: model.FieldKind, exact: []string{"kind", "transaction kind"}},
	{tag: model.FieldTransferID, exact: []string{"transfer id", "transfer group"}},
	{tag: model.FieldExternalTransferLabel, exact: []string{"transfer label", "external transfer"}},
	{tag: model.FieldTransferInboxDismissed, exact: []string{"transfer dismissed"}},
	{tag: model.FieldPurchaseItems, exact: []string{"items", "purchase items"}, contains: []string{"itemization"}},
}

// profileRules holds the layout rules for each known profile. Order
// within a list matters: exact rules run before looser substring rules
// would otherwise claim their columns.
var profileRules = map[Profile][]rule{
	ProfileYNAB: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"payee"}},
		{tag: model.FieldCategory, exact: []string{"category"}, contains: []string{"category group/category"}},
		{tag: model.FieldMemo, exact: []string{"memo"}},
		{tag: model.FieldOutflow, exact: []string{"outflow"}},
		{tag: model.FieldInflow, exact: []string{"inflow"}},
		{tag: model.FieldStatus, exact: []string{"cleared"}},
		{tag: model.FieldAccount, exact: []string{"account"}},
	},
	ProfileMint: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldMemo, exact: []string{"original description"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldKind, exact: []string{"transaction type"}},
		{tag: model.FieldCategory, exact: []string{"category"}},
		{tag: model.FieldAccount, exact: []string{"account name"}},
		{tag: model.FieldTags, exact: []string{"labels"}},
	},
	ProfileMonarch: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"merchant"}},
		{tag: model.FieldCategory, exact: []string{"category"}},
		{tag: model.FieldAccount, exact: []string{"account"}},
		{tag: model.FieldMemo, exact: []string{"original statement"}, contains: []string{"notes"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldTags, exact: []string{"tags"}},
	},
	ProfileEveryDollar: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"merchant"}},
		{tag: model.FieldCategory, exact: []string{"budget group"}, contains: []string{"category"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldMemo, contains: []string{"note"}},
	},
	ProfileAppleCard: {
		{tag: model.FieldDate, exact: []string{"transaction date"}, contains: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"merchant"}},
		{tag: model.FieldMemo, exact: []string{"description"}},
		{tag: model.FieldCategory, exact: []string{"category"}},
		{tag: model.FieldAmount, exact: []string{"amount (usd)"}, contains: []string{"amount"}},
		{tag: model.FieldStatus, exact: []string{"clearing status"}},
	},
	ProfileVenmo: {
		{tag: model.FieldDate, exact: []string{"datetime"}, contains: []string{"date"}},
		{tag: model.FieldMemo, exact: []string{"note"}},
		{tag: model.FieldPayee, exact: []string{"to", "from"}},
		{tag: model.FieldAmount, exact: []string{"amount (total)"}, contains: []string{"amount"}},
		{tag: model.FieldKind, exact: []string{"type"}},
		{tag: model.FieldStatus, exact: []string{"status"}},
	},
	ProfilePayPal: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"name"}},
		{tag: model.FieldKind, exact: []string{"type"}},
		{tag: model.FieldStatus, exact: []string{"status"}},
		{tag: model.FieldAmount, exact: []string{"net"}, contains: []string{"gross"}},
		{tag: model.FieldMemo, contains: []string{"note"}},
	},
	ProfileAmex: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldMemo, exact: []string{"appears on your statement as"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldCategory, exact: []string{"category"}},
	},
	ProfileChase: {
		{tag: model.FieldDate, exact: []string{"posting date"}, contains: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldKind, exact: []string{"type"}},
	},
	ProfileCapitalOne: {
		{tag: model.FieldDate, exact: []string{"transaction date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldCategory, exact: []string{"category"}},
		{tag: model.FieldOutflow, exact: []string{"debit"}},
		{tag: model.FieldInflow, exact: []string{"credit"}},
		{tag: model.FieldAccount, contains: []string{"account number"}},
	},
	ProfileDiscover: {
		{tag: model.FieldDate, exact: []string{"trans. date", "transaction date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldCategory, exact: []string{"category"}},
	},
	ProfileBofA: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
	},
	ProfileWellsFargo: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldCategory, exact: []string{"master category"}, contains: []string{"category"}},
	},
	ProfileCiti: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldOutflow, exact: []string{"debit"}},
		{tag: model.FieldInflow, exact: []string{"credit"}},
		{tag: model.FieldStatus, exact: []string{"status"}},
	},
	ProfileUSBank: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"name"}},
		{tag: model.FieldMemo, exact: []string{"memo"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldKind, exact: []string{"transaction"}},
	},
	ProfilePNC: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldOutflow, exact: []string{"withdrawals"}},
		{tag: model.FieldInflow, exact: []string{"deposits"}},
	},
	ProfileAlly: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldKind, exact: []string{"type"}},
	},
	ProfileChime: {
		{tag: model.FieldDate, exact: []string{"settlement date"}, contains: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldAmount, exact: []string{"amount"}},
		{tag: model.FieldKind, exact: []string{"type"}},
	},
	ProfileSchwab: {
		{tag: model.FieldDate, exact: []string{"date"}},
		{tag: model.FieldPayee, exact: []string{"description"}},
		{tag: model.FieldOutflow, exact: []string{"withdrawal"}},
		{tag: model.FieldInflow, exact: []string{"deposit"}},
		{tag: model.FieldKind, exact: []string{"type"}},
	},
	ProfileFidelity: {
		{tag: model.FieldDate, exact: []string{"run date"}},
		{tag: model.FieldPayee, exact: []string{"action"}},
		{tag: model.FieldAmount, exact: []string{"amount ($)"}, contains: []string{"amount"}},
		{tag: model.FieldAccount, exact: []string{"account"}},
	},
}

// fallbackRules run after the profile rules for every profile, filling
// Payee and Account only if those tags are still unmapped.
var fallbackRules = []rule{
	{tag: model.FieldPayee, contains: []string{"description"}},
	{tag: model.FieldAccount, exact: []string{"account", "account name"}, contains: []string{"account"}},
}

// ProposeMapping builds the initial ColumnMapping for a header row:
// the profile's ordered rules, then the cross-profile fallback pass.
// Already-mapped columns and already-assigned tags are never
// overwritten, so a loose substring rule cannot clobber an earlier
// exact rule. The result is a proposal; the user edits it freely.
func ProposeMapping(p Profile, headerRow []string) model.ColumnMapping {
	h := newHeader(headerRow)
	m := make(model.ColumnMapping)
	mapped := make([]bool, len(h))

	rules, ok := profileRules[p]
	if !ok {
		rules = genericRules
	}
	applyRules(h, m, mapped, rules)
	applyRules(h, m, mapped, fallbackRules)
	return m
}

func applyRules(h header, m model.ColumnMapping, mapped []bool, rules []rule) {
	for _, r := range rules {
		if m.Has(r.tag) {
			continue
		}
		if col := findColumn(h, mapped, r); col >= 0 {
			m.Set(col, r.tag)
			mapped[col] = true
		}
	}
}

// findColumn returns the first unmapped column matching the rule,
// trying exact texts before substring texts.
func findColumn(h header, mapped []bool, r rule) int {
	for _, want := range r.exact {
		for col, cell := range h {
			if !mapped[col] && cell == want {
				return col
			}
		}
	}
	for _, sub := range r.contains {
		for col, cell := range h {
			if !mapped[col] && strings.Contains(cell, sub) {
				return col
			}
		}
	}
	return -1
}
