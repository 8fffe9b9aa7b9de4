package stepn

import (
	"context"
	"encoding/json"
	"fmt"
)

// OrderList fetches one page of listings.
func (c *Client) OrderList(ctx context.Context, sessionID string, paging Paging) ([]Listing, error) {
	env, err := c.call(ctx, "orderlist", paging.Params().Add("sessionID", sessionID))
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}

	var raws []json.RawMessage
	err = json.Unmarshal(env.Data, &raws)
	if err != nil {
		return nil, &TransportError{Endpoint: "orderlist", Err: fmt.Errorf("decode data: %w", err)}
	}
	listings := make([]Listing, len(raws))
	for i, raw := range raws {
		err = json.Unmarshal(raw, &listings[i])
		if err != nil {
			return nil, &TransportError{Endpoint: "orderlist", Err: fmt.Errorf("decode listing %d: %w", i, err)}
		}
		listings[i].Chain = paging.Chain
		listings[i].Raw = raw
	}
	return listings, nil
}

// OrderData fetches the detail of one order.
func (c *Client) OrderData(ctx context.Context, sessionID string, orderID int64) (ListingDetail, error) {
	if c.details != nil {
		cached, hit := c.details.Get(orderID)
		if hit {
			return cached, nil
		}
	}

	env, err := c.call(ctx, "orderdata", Params{}.
		Add("orderId", orderID).
		Add("sessionID", sessionID))
	if err != nil {
		return ListingDetail{}, err
	}

	var detail ListingDetail
	err = json.Unmarshal(env.Data, &detail)
	if err != nil {
		return ListingDetail{}, &TransportError{Endpoint: "orderdata", Err: fmt.Errorf("decode data: %w", err)}
	}
	detail.Raw = env.Data

	if c.details != nil {
		c.details.Add(orderID, detail)
	}
	return detail, nil
}
