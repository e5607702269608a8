package capabilities

import "context"

// EscalationEmail asks the email collaborator to notify staff about a
// conversation that needs a human.
func (c *Client) EscalationEmail(ctx context.Context, sessionID, reason, summary string) (string, error) {
	body, err := c.postJSON(ctx, "/escalations/email", map[string]any{
		"session_id": sessionID,
		"reason":     reason,
		"summary":    summary,
	})
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// HumanReview enqueues the session for asynchronous staff review without
// interrupting the conversation.
func (c *Client) HumanReview(ctx context.Context, sessionID, topic, details string) (string, error) {
	body, err := c.postJSON(ctx, "/reviews/enqueue", map[string]any{
		"session_id": sessionID,
		"topic":      topic,
		"details":    details,
	})
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}
