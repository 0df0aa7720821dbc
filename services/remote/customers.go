package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mealdesk/models"
)

// customerInput is the writable subset of a customer sent on create.
type customerInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address"`
	Pincode    string `json:"pincode"`
	City       string `json:"city"`
	State      string `json:"state"`
	Area       string `json:"area"`
	Preference string `json:"preference"`
	IsActive   bool   `json:"isActive"`
	ProviderID string `json:"providerId"`
}

func toInput(c models.Customer) customerInput {
	return customerInput{
		Name:       c.Name,
		Phone:      c.Phone,
		Email:      c.Email,
		Address:    c.Address,
		Pincode:    c.Pincode,
		City:       c.City,
		State:      c.State,
		Area:       c.Area,
		Preference: c.Preference,
		IsActive:   c.IsActive,
		ProviderID: c.ProviderID,
	}
}

// ListCustomers fetches one page of a provider's customers. A nil cursor fetches the first page.
func (c *Client) ListCustomers(ctx context.Context, providerID string, limit int, cursor *models.Cursor) (*models.CustomerPage, error) {
	const op = "list_customers"
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != nil {
		if cursor.LastCreatedAt != "" {
			query.Set("lastCreatedAt", cursor.LastCreatedAt)
		}
		if cursor.LastID != "" {
			query.Set("lastId", cursor.LastID)
		}
	}

	raw, err := c.do(ctx, op, http.MethodGet, "/customer/provider/"+url.PathEscape(providerID), query, nil)
	if err != nil {
		return nil, err
	}

	var page models.CustomerPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, malformed(op, err)
	}
	for i, item := range page.Data {
		if strings.TrimSpace(item.ID) == "" {
			return nil, malformed(op, fmt.Errorf("customer at index %d: %w", i, errMissingID))
		}
	}
	if page.Data == nil {
		page.Data = []models.Customer{}
	}
	if page.Pagination.TotalItems < 0 {
		page.Pagination.TotalItems = 0
	}
	return &page, nil
}

// CreateCustomer persists a new customer and returns the server copy.
func (c *Client) CreateCustomer(ctx context.Context, customer models.Customer) (*models.Customer, error) {
	const op = "create_customer"
	raw, err := c.do(ctx, op, http.MethodPost, "/customer", nil, toInput(customer))
	if err != nil {
		return nil, err
	}
	return decodeCustomer(op, raw)
}

// UpdateCustomer applies a patch and returns the updated record.
func (c *Client) UpdateCustomer(ctx context.Context, id string, patch models.CustomerPatch) (*models.Customer, error) {
	const op = "update_customer"
	raw, err := c.do(ctx, op, http.MethodPut, "/customer/"+url.PathEscape(id), nil, patch)
	if err != nil {
		return nil, err
	}
	return decodeCustomer(op, raw)
}

// DeleteCustomer removes a customer and returns the id echoed by the server.
func (c *Client) DeleteCustomer(ctx context.Context, id string) (string, error) {
	const op = "delete_customer"
	raw, err := c.do(ctx, op, http.MethodDelete, "/customer/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return "", err
	}

	if echoed := echoedID(raw); echoed != "" {
		return echoed, nil
	}
	return id, nil
}

// ToggleCustomerActive flips the active flag server-side and returns the updated record.
func (c *Client) ToggleCustomerActive(ctx context.Context, id string) (*models.Customer, error) {
	const op = "toggle_customer_active"
	raw, err := c.do(ctx, op, http.MethodPatch, "/customer/"+url.PathEscape(id)+"/toggle-active", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeCustomer(op, raw)
}

func decodeCustomer(op string, raw []byte) (*models.Customer, error) {
	var customer models.Customer
	if err := decodeRecord(op, raw, &customer); err != nil {
		return nil, err
	}
	if strings.TrimSpace(customer.ID) == "" {
		return nil, malformed(op, errMissingID)
	}
	return &customer, nil
}

// echoedID pulls the id out of {"id"}, {"_id"}, {"data": "<id>"} or {"data": {"_id"}}.
func echoedID(raw []byte) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, key := range []string{"id", "_id", "data"} {
		value, ok := body[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil && s != "" {
			return s
		}
		if key == "data" {
			return echoedID(value)
		}
	}
	return ""
}
