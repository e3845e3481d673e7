package ozonapi

import "context"

// PromotionAPI is the promotion subclient of the Seller API.
//
// The Promotion API reports many failures as HTTP 200 with an error payload,
// so every response body is checked before use.
type PromotionAPI struct {
	client *SellerClient
}

// ActivateProduct describes a product to add to a promotion.
type ActivateProduct struct {
	ProductID   int64   `json:"product_id"`
	ActionPrice float64 `json:"action_price"`
	Stock       int     `json:"stock"`
}

// checkError detects body-level Promotion API errors: a non-2xx "code" field,
// or a "message" without a "result".
func checkPromotionError(resp map[string]any) error {
	if v, ok := resp["code"].(float64); ok {
		code := int(v)
		if code < 200 || code >= 300 {
			details, _ := resp["details"].([]any)
			return &PromotionError{
				Message: responseMessage(resp, "Unknown promotion error"),
				Code:    code,
				Details: details,
			}
		}
	}
	if msg, ok := resp["message"].(string); ok {
		if _, hasResult := resp["result"]; !hasResult {
			details, _ := resp["details"].([]any)
			return &PromotionError{Message: msg, Details: details}
		}
	}
	return nil
}

// Actions fetches the list of available promotions.
func (a *PromotionAPI) Actions(ctx context.Context) ([]map[string]any, error) {
	resp, err := a.client.Get(ctx, EndpointActionsList, nil)
	if err != nil {
		return nil, err
	}
	if err := checkPromotionError(resp); err != nil {
		return nil, err
	}
	return objectList(resp, "result"), nil
}

// Candidates fetches all products eligible for a promotion, following
// last_id pagination.
func (a *PromotionAPI) Candidates(ctx context.Context, actionID int64, limit int) ([]map[string]any, error) {
	return a.pageProducts(ctx, EndpointActionsCandidates, actionID, limit)
}

// ActionProducts fetches all products currently participating in a promotion.
func (a *PromotionAPI) ActionProducts(ctx context.Context, actionID int64, limit int) ([]map[string]any, error) {
	return a.pageProducts(ctx, EndpointActionsProducts, actionID, limit)
}

func (a *PromotionAPI) pageProducts(ctx context.Context, endpoint string, actionID int64, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 100
	}

	var all []map[string]any
	lastID := ""

	for {
		body := map[string]any{"action_id": actionID, "limit": limit}
		if lastID != "" {
			body["last_id"] = lastID
		}

		resp, err := a.client.Post(ctx, endpoint, body)
		if err != nil {
			return nil, err
		}
		if err := checkPromotionError(resp); err != nil {
			return nil, err
		}

		result := objectField(resp, "result")
		products := objectList(result, "products")
		all = append(all, products...)

		lastID, _ = result["last_id"].(string)
		if lastID == "" || len(products) == 0 {
			return all, nil
		}
	}
}

// ActivateProducts adds products to a promotion. The result carries
// "product_ids" (added) and "rejected" lists.
func (a *PromotionAPI) ActivateProducts(ctx context.Context, actionID int64, products []ActivateProduct) (map[string]any, error) {
	resp, err := a.client.Post(ctx, EndpointActionsActivate, map[string]any{
		"action_id": actionID,
		"products":  products,
	})
	if err != nil {
		return nil, err
	}
	if err := checkPromotionError(resp); err != nil {
		return nil, err
	}
	return objectField(resp, "result"), nil
}

// DeactivateProducts removes products from a promotion.
func (a *PromotionAPI) DeactivateProducts(ctx context.Context, actionID int64, productIDs []int64) (map[string]any, error) {
	resp, err := a.client.Post(ctx, EndpointActionsDeactivate, map[string]any{
		"action_id":   actionID,
		"product_ids": productIDs,
	})
	if err != nil {
		return nil, err
	}
	if err := checkPromotionError(resp); err != nil {
		return nil, err
	}
	return objectField(resp, "result"), nil
}
