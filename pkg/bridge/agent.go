package bridge

import "github.com/grottohq/voicebridge/pkg/gemini"

// SystemPrompt is the sales persona the model speaks as.
const SystemPrompt = `Your name is Joanne, and you are a world-class car saleswoman.
You help customers find the right rental or full purchase car for their needs, selling the best parts of the car for their unique situation.
You have information about various cars including economy, sedan, SUV, luxury, and van options.
Be friendly, concise, and helpful. Answer questions about:
- Car availability and features
- Pricing
- Rental terms
- Recommendations based on customer needs

Keep responses brief and conversational since this is a voice call. During the call, try to naturally gather the caller's name, their budget range, the kind of car they are after, and anything else relevant to matching them with a car.

The first thing you should do is call the get_caller_profile tool, as the caller may have called before. If there is profile data, you can reference it in your responses. If not, introduce yourself, ask for their name, and begin learning about their needs. You should start by getting their name if you don't have it yet.

At any point, you can call get_caller_profile again to get the most up-to-date information about the caller.

You are looking to sell a car today. Use show_top_cars to see the cars available, passing in filters based on what you learn about the caller.

If at any point the caller asks to speak to a human agent, or you determine they would be better served by one, first call can_transfer_to_human to check whether a human is available. If it returns true, call transfer_to_human to transfer the call.
If the caller is rude or otherwise inappropriate, you can choose to end the call: first call can_end_call, and if it returns true, call end_call.
If the call is over and there is nothing else to do, call can_end_call, and if it returns true, call end_call.`

// ToolDeclarations describes every tool the model may invoke during a
// call, in the shape the Live API setup message expects.
func ToolDeclarations() []gemini.ToolDeclaration {
	return []gemini.ToolDeclaration{
		{
			Name:        "show_top_cars",
			Description: "Show the top N cars matching the given criteria from the car database.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"makes": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "List of car makes to filter by.",
					},
					"models": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "List of car models to filter by.",
					},
					"year_gte": map[string]any{
						"type":        "integer",
						"description": "Minimum year of manufacture.",
					},
					"year_lte": map[string]any{
						"type":        "integer",
						"description": "Maximum year of manufacture.",
					},
					"budget_low":  map[string]any{"type": "number", "description": "Minimum budget."},
					"budget_high": map[string]any{"type": "number", "description": "Maximum budget."},
					"car_type": map[string]any{
						"type":        "string",
						"enum":        []string{"economy", "sedan", "suv", "luxury", "van"},
						"description": "Type of car (e.g., SUV, sedan).",
					},
					"sale_type": map[string]any{
						"type":        "string",
						"enum":        []string{"rental", "lease", "purchase"},
						"description": "Sale type (e.g., rental, lease).",
					},
					"fuel_efficiency_gte": map[string]any{
						"type":        "integer",
						"description": "Minimum fuel efficiency (MPG).",
					},
					"features": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "List of desired features (e.g., sunroof, all-wheel drive).",
					},
					"horsepower_gte": map[string]any{
						"type":        "integer",
						"description": "Minimum horsepower.",
					},
					"seats_gte": map[string]any{
						"type":        "integer",
						"description": "Minimum number of seats.",
					},
					"order_by": map[string]any{
						"type":        "string",
						"enum":        []string{"year", "price", "mileage"},
						"description": "Attribute to order results by.",
					},
					"top_n": map[string]any{
						"type":        "integer",
						"description": "Number of car results to return. Default 5, can be set higher.",
					},
				},
			},
		},
		{
			Name: "can_transfer_to_human",
			Description: "Check if the call can be transferred to a human agent. Returns true if there is a human able to take the " +
				"transfer, false otherwise. You must call this and it must return true before calling transfer_to_human.",
			Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "transfer_to_human",
			Description: "Transfer the call to a human leasing agent. This may only be called after can_transfer_to_human returned true.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name: "can_end_call",
			Description: "Check if the call can be ended. Returns a message if it can be ended. " +
				"You must call this and it must return true before calling end_call.",
			Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "end_call",
			Description: "Immediately ends the call. This may only be called after can_end_call returns true.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name: "get_caller_profile",
			Description: "Get the most up-to-date caller profile. Helpful when presenting available cars to the caller, " +
				"to match to their stated preferences.",
		},
	}
}
