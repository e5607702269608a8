package capabilities

import (
	"context"
	"fmt"

	"github.com/tradeup-ai/voxline/pkg/configutil"
	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/tools"
)

// Registry binds tool names to capability routes for one session. It is
// the concrete tools.Registry handed to the dispatcher.
type Registry struct {
	client    *Client
	policy    SearchPolicy
	sessionID string
}

func NewRegistry(client *Client, policy SearchPolicy, sessionID string) *Registry {
	if policy.MinUsefulChars <= 0 {
		policy = DefaultSearchPolicy()
	}
	return &Registry{client: client, policy: policy, sessionID: sessionID}
}

func stringSchema(props map[string]string, required ...string) map[string]any {
	p := make(map[string]any, len(props))
	for name, desc := range props {
		p[name] = map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{"type": "object", "properties": p, "required": required}
}

func (r *Registry) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        "search_products",
			Description: "Search the store catalog for products and general information.",
			Schema:      stringSchema(map[string]string{"query": "what to look for"}, "query"),
		},
		{
			Name:        "get_trade_in_value",
			Description: "Look up the trade-in value for a device.",
			Schema:      stringSchema(map[string]string{"item": "the device", "condition": "device condition"}, "item"),
		},
		{
			Name:        "update_lead",
			Description: "Record trade-in lead details gathered so far.",
			Schema:      map[string]any{"type": "object", "additionalProperties": true},
		},
		{
			Name:        "submit_lead",
			Description: "Submit the completed trade-in lead for staff follow-up.",
			Schema:      map[string]any{"type": "object", "additionalProperties": true},
		},
		{
			Name:        "escalate_to_staff",
			Description: "Email staff when the conversation needs a human.",
			Schema:      stringSchema(map[string]string{"reason": "why staff is needed", "summary": "conversation summary"}, "reason"),
		},
		{
			Name:        "check_price",
			Description: "Look up the retail price of a product.",
			Schema:      stringSchema(map[string]string{"product": "the product"}, "product"),
		},
		{
			Name:        "check_inventory",
			Description: "Check stock for a product.",
			Schema:      stringSchema(map[string]string{"product": "the product", "store": "optional store location"}, "product"),
		},
		{
			Name:        "create_order",
			Description: "Place an order for the customer.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"product":  map[string]any{"type": "string"},
					"quantity": map[string]any{"type": "integer"},
				},
				"required": []string{"product"},
			},
		},
		{
			Name:        "schedule_inspection",
			Description: "Book an in-store inspection slot for a trade-in device.",
			Schema:      stringSchema(map[string]string{"item": "the device", "slot": "preferred time slot"}, "item"),
		},
		{
			Name:        "extract_document",
			Description: "Extract text from a photographed document, such as a receipt.",
			Schema:      stringSchema(map[string]string{"document_url": "URL of the uploaded document image"}, "document_url"),
		},
		{
			Name:        "request_human_review",
			Description: "Queue the session for staff review without interrupting the conversation.",
			Schema:      stringSchema(map[string]string{"topic": "what to review", "details": "relevant context"}, "topic"),
		},
	}
}

type searchArgs struct {
	Query string `mapstructure:"query"`
}

type tradeInArgs struct {
	Item      string `mapstructure:"item"`
	Condition string `mapstructure:"condition"`
}

type escalateArgs struct {
	Reason  string `mapstructure:"reason"`
	Summary string `mapstructure:"summary"`
}

type productArgs struct {
	Product string `mapstructure:"product"`
	Store   string `mapstructure:"store"`
}

type orderArgs struct {
	Product  string `mapstructure:"product"`
	Quantity int    `mapstructure:"quantity"`
}

type inspectionArgs struct {
	Item string `mapstructure:"item"`
	Slot string `mapstructure:"slot"`
}

type documentArgs struct {
	DocumentURL string `mapstructure:"document_url"`
}

type reviewArgs struct {
	Topic   string `mapstructure:"topic"`
	Details string `mapstructure:"details"`
}

func decodeArgs(args map[string]any, out any) error {
	if err := configutil.DecodeSettings(args, out); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonToolArgs)
	}
	return nil
}

func requireArg(value, path string) error {
	if err := configutil.RequireString(value, path); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonToolArgs)
	}
	return nil
}

func (r *Registry) Handle(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "search_products":
		var a searchArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.Query, "query"); err != nil {
			return "", err
		}
		return r.client.SearchProducts(ctx, a.Query, r.policy)
	case "get_trade_in_value":
		var a tradeInArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.Item, "item"); err != nil {
			return "", err
		}
		return r.client.GetTradeInValue(ctx, a.Item, a.Condition, r.policy)
	case "update_lead":
		return r.client.LeadUpdate(ctx, r.sessionID, args)
	case "submit_lead":
		return r.client.LeadSubmit(ctx, r.sessionID, args)
	case "escalate_to_staff":
		var a escalateArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.Reason, "reason"); err != nil {
			return "", err
		}
		return r.client.EscalationEmail(ctx, r.sessionID, a.Reason, a.Summary)
	case "check_price":
		var a productArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.Product, "product"); err != nil {
			return "", err
		}
		return r.client.PriceLookup(ctx, a.Product)
	case "check_inventory":
		var a productArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.Product, "product"); err != nil {
			return "", err
		}
		return r.client.InventoryCheck(ctx, a.Product, a.Store)
	case "create_order":
		var a orderArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.Product, "product"); err != nil {
			return "", err
		}
		return r.client.OrderCreate(ctx, r.sessionID, a.Product, a.Quantity)
	case "schedule_inspection":
		var a inspectionArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.Item, "item"); err != nil {
			return "", err
		}
		return r.client.ScheduleInspection(ctx, r.sessionID, a.Item, a.Slot)
	case "extract_document":
		var a documentArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.DocumentURL, "document_url"); err != nil {
			return "", err
		}
		return r.client.OCRExtract(ctx, a.DocumentURL)
	case "request_human_review":
		var a reviewArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := requireArg(a.Topic, "topic"); err != nil {
			return "", err
		}
		return r.client.HumanReview(ctx, r.sessionID, a.Topic, a.Details)
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

var _ tools.Registry = (*Registry)(nil)
