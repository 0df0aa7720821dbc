package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"mealdesk/apperrors"
	"mealdesk/models"
)

// GetTrialStatus fetches the provider's trial state.
func (c *Client) GetTrialStatus(ctx context.Context, providerID string) (*models.TrialStatus, error) {
	const op = "get_trial_status"
	raw, err := c.do(ctx, op, http.MethodGet, "/subscription/trial-status/"+url.PathEscape(providerID), nil, nil)
	if err != nil {
		return nil, err
	}
	var status models.TrialStatus
	if err := decodeRecord(op, raw, &status); err != nil {
		return nil, err
	}
	if status.DaysLeft < 0 {
		status.DaysLeft = 0
	}
	return &status, nil
}

// GetSubscription fetches the provider's subscription record. A provider that never
// subscribed gets a nil record and no error.
func (c *Client) GetSubscription(ctx context.Context, providerID string) (*models.SubscriptionStatus, error) {
	const op = "get_subscription"
	raw, err := c.do(ctx, op, http.MethodGet, "/subscription/provider/"+url.PathEscape(providerID), nil, nil)
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var sub models.SubscriptionStatus
	if err := decodeRecord(op, raw, &sub); err != nil {
		return nil, err
	}
	switch sub.Status {
	case models.SubscriptionActive, models.SubscriptionCancelled, models.SubscriptionPending, models.SubscriptionInactive:
	case "":
		return nil, nil
	default:
		sub.Status = models.SubscriptionInactive
	}
	return &sub, nil
}
