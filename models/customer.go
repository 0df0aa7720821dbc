package models

import (
	"encoding/json"
	"time"
)

// Meal preference of a subscriber.
const (
	PreferenceVeg    = "veg"
	PreferenceNonVeg = "non-veg"
	PreferenceJain   = "jain"
)

// Customer is one subscriber record of a provider.
type Customer struct {
	ID         string    `json:"_id,omitempty"`
	Name       string    `json:"name" validate:"required,max=100"`
	Phone      string    `json:"phone" validate:"required,len=10,numeric"`
	Email      string    `json:"email,omitempty" validate:"omitempty,email,max=100"`
	Address    string    `json:"address" validate:"required,max=250"`
	Pincode    string    `json:"pincode" validate:"required,len=6,numeric"`
	City       string    `json:"city" validate:"required,max=50"`
	State      string    `json:"state" validate:"required,max=50"`
	Area       string    `json:"area" validate:"required,max=50"`
	Preference string    `json:"preference" validate:"required,oneof=veg non-veg jain"`
	IsActive   bool      `json:"isActive"`
	ProviderID string    `json:"providerId" validate:"required"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts the record id under either "_id" or "id".
func (c *Customer) UnmarshalJSON(data []byte) error {
	type alias Customer
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = aux.AltID
	}
	return nil
}

// CustomerPatch carries the fields of an update; nil fields are left untouched.
type CustomerPatch struct {
	Name       *string `json:"name,omitempty" validate:"omitnil,min=1,max=100"`
	Phone      *string `json:"phone,omitempty" validate:"omitnil,len=10,numeric"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email,max=100"`
	Address    *string `json:"address,omitempty" validate:"omitnil,min=1,max=250"`
	Pincode    *string `json:"pincode,omitempty" validate:"omitnil,len=6,numeric"`
	City       *string `json:"city,omitempty" validate:"omitnil,min=1,max=50"`
	State      *string `json:"state,omitempty" validate:"omitnil,min=1,max=50"`
	Area       *string `json:"area,omitempty" validate:"omitnil,min=1,max=50"`
	Preference *string `json:"preference,omitempty" validate:"omitnil,oneof=veg non-veg jain"`
	IsActive   *bool   `json:"isActive,omitempty"`
}

// Cursor is the compound continuation key returned with each page.
type Cursor struct {
	LastCreatedAt string `json:"lastCreatedAt"`
	LastID        string `json:"lastId"`
}

// Pagination is the page metadata returned by the customer list endpoint.
type Pagination struct {
	HasMore    bool   `json:"hasMore"`
	TotalItems int    `json:"totalItems"`
	NextCursor string `json:"nextCursor,omitempty"`
	NextID     string `json:"nextId,omitempty"`
}

// Cursor returns the continuation key, or nil when the page carries none.
func (p Pagination) Cursor() *Cursor {
	if p.NextCursor == "" && p.NextID == "" {
		return nil
	}
	return &Cursor{LastCreatedAt: p.NextCursor, LastID: p.NextID}
}

// CustomerPage is one page of the customer list.
type CustomerPage struct {
	Data       []Customer `json:"data"`
	Pagination Pagination `json:"pagination"`
}
