// Package tracking defines the event tracker that enriches every outbound
// analytics and ad-pixel event with the visitor's accumulated user properties.
package tracking

import "maps"

// Properties is a flat name to value mapping sent with events.
type Properties map[string]any

const (
	// PageViewEvent is the analytics name of a page view.
	PageViewEvent = "page_view"
	// PixelPageViewEvent is the ad-pixel name of a page view.
	PixelPageViewEvent = "PageView"

	// Brand is attached to every commerce item.
	Brand = "Mayanov Tarot"
	// DefaultCategory is used when an event carries no content_category.
	DefaultCategory = "Service"
)

// TrackedEvent is one outbound event after enrichment.
type TrackedEvent struct {
	Name               string
	PrimaryParams      Properties
	SecondaryEventName string
	SecondaryParams    Properties
}

// Item is one entry of a commerce items list.
type Item struct {
	ItemName string `json:"item_name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

// merge returns {...explicit, ...global}: global properties win on collision.
func merge(explicit, global Properties) Properties {
	out := make(Properties, len(explicit)+len(global))
	maps.Copy(out, explicit)
	maps.Copy(out, global)
	return out
}

// CommercePayload reshapes merged params that carry an item_name into the nested
// items form analytics commerce dimensions read from. Params without item_name
// are returned unchanged.
func CommercePayload(params Properties) Properties {
	itemName, ok := params["item_name"]
	if !ok || isEmpty(itemName) {
		return params
	}

	category := DefaultCategory
	if c, ok := params["content_category"].(string); ok && c != "" {
		category = c
	}

	out := make(Properties, len(params)+1)
	for k, v := range params {
		if k == "item_name" {
			continue
		}
		out[k] = v
	}
	out["items"] = []Item{{
		ItemName: toString(itemName),
		Brand:    Brand,
		Category: category,
	}}
	return out
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
