package capabilities

import "context"

// LeadUpdate records partial trade-in lead details gathered so far in
// the conversation. Fields are passed through untouched; the CRM owns
// the schema.
func (c *Client) LeadUpdate(ctx context.Context, sessionID string, fields map[string]any) (string, error) {
	payload := map[string]any{"session_id": sessionID}
	for k, v := range fields {
		payload[k] = v
	}
	body, err := c.postJSON(ctx, "/leads/update", payload)
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// LeadSubmit finalizes the trade-in lead for staff follow-up.
func (c *Client) LeadSubmit(ctx context.Context, sessionID string, fields map[string]any) (string, error) {
	payload := map[string]any{"session_id": sessionID}
	for k, v := range fields {
		payload[k] = v
	}
	body, err := c.postJSON(ctx, "/leads/submit", payload)
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}
