package capabilities

import "context"

// PriceLookup returns the current retail price for a product.
func (c *Client) PriceLookup(ctx context.Context, product string) (string, error) {
	body, err := c.postJSON(ctx, "/commerce/price", map[string]any{"product": product})
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// InventoryCheck reports stock for a product, optionally per store.
func (c *Client) InventoryCheck(ctx context.Context, product, store string) (string, error) {
	payload := map[string]any{"product": product}
	if store != "" {
		payload["store"] = store
	}
	body, err := c.postJSON(ctx, "/commerce/inventory", payload)
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// OrderCreate places an order on the customer's behalf.
func (c *Client) OrderCreate(ctx context.Context, sessionID, product string, quantity int) (string, error) {
	if quantity <= 0 {
		quantity = 1
	}
	body, err := c.postJSON(ctx, "/commerce/orders", map[string]any{
		"session_id": sessionID,
		"product":    product,
		"quantity":   quantity,
	})
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// ScheduleInspection books an in-store inspection slot for a trade-in
// device.
func (c *Client) ScheduleInspection(ctx context.Context, sessionID, item, slot string) (string, error) {
	body, err := c.postJSON(ctx, "/inspections/schedule", map[string]any{
		"session_id": sessionID,
		"item":       item,
		"slot":       slot,
	})
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// OCRExtract pulls structured text out of a document image, e.g. a
// receipt or device label photographed at the kiosk.
func (c *Client) OCRExtract(ctx context.Context, documentURL string) (string, error) {
	body, err := c.postJSON(ctx, "/documents/extract", map[string]any{"document_url": documentURL})
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}
