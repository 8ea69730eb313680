package model

// FieldTag names the semantic meaning of one CSV column.
type FieldTag string

const (
	FieldDate                   FieldTag = "date"
	FieldPayee                  FieldTag = "payee"
	FieldMemo                   FieldTag = "memo"
	FieldAmount                 FieldTag = "amount"
	FieldInflow                 FieldTag = "inflow"
	FieldOutflow                FieldTag = "outflow"
	FieldCategory               FieldTag = "category"
	FieldAccount                FieldTag = "account"
	FieldTags                   FieldTag = "tags"
	FieldStatus                 FieldTag = "status"
	FieldKind                   FieldTag = "kind"
	FieldTransferID             FieldTag = "transfer_id"
	FieldExternalTransferLabel  FieldTag = "external_transfer_label"
	FieldTransferInboxDismissed FieldTag = "transfer_inbox_dismissed"
	FieldPurchaseItems          FieldTag = "purchase_items"
	FieldSkip                   FieldTag = "skip"
)

// ColumnMapping assigns a semantic tag to column indexes. A column maps
// to at most one tag; assigning a tag twice is legal and last-wins.
type ColumnMapping map[int]FieldTag

// Set assigns tag to column col, replacing any prior tag on that column.
func (m ColumnMapping) Set(col int, tag FieldTag) {
	m[col] = tag
}

// ColumnFor returns the lowest column index carrying tag, or -1.
// Lowest-index wins so the answer is deterministic when a tag was
// assigned to more than one column.
func (m ColumnMapping) ColumnFor(tag FieldTag) int {
	found := -1
	for col, t := range m {
		if t != tag {
			continue
		}
		if found == -1 || col < found {
			found = col
		}
	}
	return found
}

// Has reports whether any column carries tag.
func (m ColumnMapping) Has(tag FieldTag) bool {
	return m.ColumnFor(tag) >= 0
}

// Clone returns an independent copy of the mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for col, tag := range m {
		out[col] = tag
	}
	return out
}
