package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// OrderItem is one line of a supplier order. Items are free-form: qty may be
// a number or text like "2 dus", and unknown fields are kept. Decoding keeps
// the item's original JSON, which MarshalJSON returns unchanged.
type OrderItem struct {
	Name string
	Qty  string
	Unit string

	raw json.RawMessage
}

// UnmarshalJSON reads name, qty and unit as text from an object item. Any
// other JSON value becomes the item's name.
func (i *OrderItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*i = OrderItem{raw: append(json.RawMessage(nil), data...)}
	if len(data) == 0 || data[0] != '{' {
		i.Name = jsonText(data)
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	i.Name = jsonText(fields["name"])
	i.Qty = jsonText(fields["qty"])
	i.Unit = jsonText(fields["unit"])
	return nil
}

// MarshalJSON returns the decoded JSON when there is one.
func (i OrderItem) MarshalJSON() ([]byte, error) {
	if len(i.raw) > 0 {
		return i.raw, nil
	}
	out := map[string]string{"name": i.Name}
	if i.Qty != "" {
		out["qty"] = i.Qty
	}
	if i.Unit != "" {
		out["unit"] = i.Unit
	}
	return json.Marshal(out)
}

// Line renders the item as "Gula 10 kg", skipping empty parts.
func (i OrderItem) Line() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{i.Name, i.Qty, i.Unit} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func jsonText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(raw)
}

// OrderTextRequest asks for a chat message ordering items from a supplier.
type OrderTextRequest struct {
	Items        []OrderItem `json:"items"`
	SupplierName string      `json:"supplier_name"`
}

// Validate requires at least one item.
func (r *OrderTextRequest) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: daftar item belanja wajib ada", ErrValidation)
	}
	return nil
}

// OrderTextResponse carries the generated order message.
type OrderTextResponse struct {
	Message string `json:"message"`
}
