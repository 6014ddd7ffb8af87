package feeds

import (
	"context"
	"net/url"
	"time"
)

// OddsAdapter pulls current market prices from an odds aggregator API.
type OddsAdapter struct {
	id     string
	client *Client
	region string
}

type oddsResponse struct {
	Markets []struct {
		MarketID   string `json:"market_id"`
		Selections []struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		} `json:"selections"`
	} `json:"markets"`
}

// NewOddsAdapter creates an odds source scoped to one bookmaker region
func NewOddsAdapter(id string, client *Client, region string) *OddsAdapter {
	return &OddsAdapter{id: id, client: client, region: region}
}

func (a *OddsAdapter) ID() string {
	return a.id
}

func (a *OddsAdapter) Kind() SourceKind {
	return KindOdds
}

func (a *OddsAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.Ping(ctx, "/v1/status")
}

// Fetch retrieves current prices for all open markets in the region
func (a *OddsAdapter) Fetch(ctx context.Context) (*SourceData, error) {
	params := url.Values{}
	if a.region != "" {
		params.Set("region", a.region)
	}

	var resp oddsResponse
	if err := a.client.GetJSON(ctx, "/v1/odds", params, &resp); err != nil {
		return nil, &FetchError{SourceID: a.id, Err: err}
	}

	rows := make([]OddsRow, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		if m.MarketID == "" || len(m.Selections) == 0 {
			continue
		}
		prices := make(map[string]float64, len(m.Selections))
		for _, s := range m.Selections {
			if s.Name == "" || s.Price <= 0 {
				continue
			}
			prices[s.Name] = s.Price
		}
		if len(prices) == 0 {
			continue
		}
		rows = append(rows, OddsRow{MarketID: m.MarketID, Markets: prices})
	}

	return &SourceData{
		SourceID:  a.id,
		Kind:      KindOdds,
		FetchedAt: time.Now(),
		Odds:      rows,
	}, nil
}
