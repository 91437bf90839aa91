package fetch

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dailypush/inkdash/internal/model"
)

type statePayload struct {
	EntityID string  `json:"entity_id"`
	State    *string `json:"state"`
}

// NamedSensor reads the numeric state of a Home Assistant entity. Any
// failure returns an unavailable Measurement alongside the error.
func (c *Client) NamedSensor(ctx context.Context, entityID string) (model.Measurement, error) {
	u := strings.TrimRight(c.haURL, "/") + "/api/states/" + url.PathEscape(entityID)
	h := http.Header{}
	if c.haToken != "" {
		h.Set("Authorization", "Bearer "+c.haToken)
	}

	var p statePayload
	if err := c.getJSON(ctx, u, h, &p); err != nil {
		return model.Unavailable(), err
	}
	if p.State == nil {
		return model.Unavailable(), missing("state")
	}
	switch s := strings.TrimSpace(*p.State); s {
	case "", "unavailable", "unknown":
		return model.Unavailable(), &DecodeError{Field: "state", Err: fmt.Errorf("entity %s is %q", entityID, s)}
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Unavailable(), &DecodeError{Field: "state", Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Unavailable(), &DecodeError{Field: "state", Err: fmt.Errorf("entity %s is not finite: %q", entityID, s)}
		}
		return model.Available(v), nil
	}
}
