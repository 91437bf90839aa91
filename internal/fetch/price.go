package fetch

import (
	"context"

	"github.com/dailypush/inkdash/internal/model"
)

type pricePayload map[string]struct {
	USD *float64 `json:"usd"`
}

// SpotPrice reads {"<asset>": {"usd": n}} from url, as served by the
// CoinGecko simple price API.
func (c *Client) SpotPrice(ctx context.Context, url, asset string) (model.Price, error) {
	var p pricePayload
	if err := c.getJSON(ctx, url, nil, &p); err != nil {
		return model.Price{}, err
	}
	q, ok := p[asset]
	if !ok {
		return model.Price{}, missing(asset)
	}
	if q.USD == nil {
		return model.Price{}, missing(asset + ".usd")
	}
	return model.Price{USD: round(*q.USD), Valid: true}, nil
}
