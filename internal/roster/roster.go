// Package roster manages the delivery recipients for a single order.
package roster

import (
	"fmt"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/google/uuid"
)

// Field names a recipient input.
type Field string

const (
	FieldName        Field = "name"
	FieldPhone       Field = "phone"
	FieldFlatAddress Field = "flat_address"
	FieldPinCode     Field = "pin_code"
)

// Fields lists the recipient inputs in display order.
var Fields = []Field{FieldName, FieldPhone, FieldFlatAddress, FieldPinCode}

// ParseField converts a wire name into a Field.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// FieldErrors holds at most one message per recipient field. An empty
// string means the field has no error.
type FieldErrors struct {
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	FlatAddress string `json:"flat_address,omitempty"`
	PinCode     string `json:"pin_code,omitempty"`
}

// IsEmpty reports whether no field has an error.
func (e FieldErrors) IsEmpty() bool {
	return e == FieldErrors{}
}

// Get returns the message for f.
func (e FieldErrors) Get(f Field) string {
	switch f {
	case FieldName:
		return e.Name
	case FieldPhone:
		return e.Phone
	case FieldFlatAddress:
		return e.FlatAddress
	case FieldPinCode:
		return e.PinCode
	}
	return ""
}

// Map returns the non-empty messages keyed by field name.
func (e FieldErrors) Map() map[string]string {
	m := make(map[string]string)
	for _, f := range Fields {
		if msg := e.Get(f); msg != "" {
			m[string(f)] = msg
		}
	}
	return m
}

func (e *FieldErrors) set(f Field, msg string) {
	switch f {
	case FieldName:
		e.Name = msg
	case FieldPhone:
		e.Phone = msg
	case FieldFlatAddress:
		e.FlatAddress = msg
	case FieldPinCode:
		e.PinCode = msg
	}
}

// Recipient is one delivery address with its contact person.
type Recipient struct {
	ID          string      `json:"id" validate:"-"`
	Name        string      `json:"name" validate:"required"`
	Phone       string      `json:"phone" validate:"required,in_phone"`
	FlatAddress string      `json:"flat_address" validate:"required"`
	PinCode     string      `json:"pin_code" validate:"required,pincode"`
	Errors      FieldErrors `json:"errors" validate:"-"`
}

func (r *Recipient) setField(f Field, value string) {
	switch f {
	case FieldName:
		r.Name = value
	case FieldPhone:
		r.Phone = value
	case FieldFlatAddress:
		r.FlatAddress = value
	case FieldPinCode:
		r.PinCode = value
	}
}

// Roster is an ordered list of recipients. Ids are assigned on creation and
// never change, so edits to one recipient never touch another.
// It is not safe for concurrent use; callers serialize access.
type Roster struct {
	recipients []Recipient
	newID      func() string
}

// New creates a roster holding one empty recipient.
func New() *Roster {
	r := &Roster{newID: uuid.NewString}
	r.Reset()
	return r
}

// Reset replaces the roster with a single empty recipient.
func (r *Roster) Reset() {
	r.recipients = []Recipient{{ID: r.newID()}}
}

// Add appends an empty recipient with a fresh id and returns it.
func (r *Roster) Add() Recipient {
	rec := Recipient{ID: r.newID()}
	r.recipients = append(r.recipients, rec)
	return rec
}

// Remove drops the recipient with id. The roster may become empty.
func (r *Roster) Remove(id string) error {
	for i, rec := range r.recipients {
		if rec.ID == id {
			r.recipients = append(r.recipients[:i:i], r.recipients[i+1:]...)
			return nil
		}
	}
	return domain.NotFound("roster.remove", "recipient", id)
}

// Update sanitizes value, stores it in field and clears that field's error.
// Errors on other fields stay until the next ValidateAll.
func (r *Roster) Update(id string, field Field, value string) (Recipient, error) {
	if _, ok := ParseField(string(field)); !ok {
		return Recipient{}, domain.Invalid("roster.update", fmt.Sprintf("unknown field: %s", field))
	}
	for i := range r.recipients {
		if r.recipients[i].ID == id {
			r.recipients[i].setField(field, Sanitize(value))
			r.recipients[i].Errors.set(field, "")
			return r.recipients[i], nil
		}
	}
	return Recipient{}, domain.NotFound("roster.update", "recipient", id)
}

// ValidateAll checks every recipient, writes the resulting errors back and
// reports whether the roster can be submitted. An empty roster is invalid.
func (r *Roster) ValidateAll() bool {
	valid := len(r.recipients) > 0
	for i := range r.recipients {
		r.recipients[i].Errors = check(r.recipients[i])
		if !r.recipients[i].Errors.IsEmpty() {
			valid = false
		}
	}
	return valid
}

// Recipients returns a copy of the roster in order.
func (r *Roster) Recipients() []Recipient {
	out := make([]Recipient, len(r.recipients))
	copy(out, r.recipients)
	return out
}

// Len returns the number of recipients.
func (r *Roster) Len() int {
	return len(r.recipients)
}
