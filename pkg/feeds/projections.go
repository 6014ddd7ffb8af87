package feeds

import (
	"context"
	"fmt"
	"time"
)

// ProjectionsAdapter pulls per-player statistical projections from a
// stats-provider API and normalizes them into projection rows.
type ProjectionsAdapter struct {
	id     string
	client *Client
}

type projectionsResponse struct {
	AsOf    time.Time `json:"as_of"`
	Players []struct {
		PlayerID  string             `json:"player_id"`
		Projected map[string]float64 `json:"projected"`
		UpdatedAt time.Time          `json:"updated_at"`
	} `json:"players"`
}

// NewProjectionsAdapter creates a projections source with the given id
func NewProjectionsAdapter(id string, client *Client) *ProjectionsAdapter {
	return &ProjectionsAdapter{id: id, client: client}
}

func (a *ProjectionsAdapter) ID() string {
	return a.id
}

func (a *ProjectionsAdapter) Kind() SourceKind {
	return KindProjections
}

func (a *ProjectionsAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.Ping(ctx, "/v1/status")
}

// Fetch retrieves current projections for all covered players
func (a *ProjectionsAdapter) Fetch(ctx context.Context) (*SourceData, error) {
	var resp projectionsResponse
	if err := a.client.GetJSON(ctx, "/v1/projections", nil, &resp); err != nil {
		return nil, &FetchError{SourceID: a.id, Err: err}
	}

	rows := make([]ProjectionRow, 0, len(resp.Players))
	for _, p := range resp.Players {
		if p.PlayerID == "" || len(p.Projected) == 0 {
			continue
		}
		updated := p.UpdatedAt
		if updated.IsZero() {
			updated = resp.AsOf
		}
		rows = append(rows, ProjectionRow{
			EntityID:  p.PlayerID,
			Stats:     p.Projected,
			UpdatedAt: updated,
		})
	}
	if len(rows) == 0 {
		return nil, &FetchError{SourceID: a.id, Err: fmt.Errorf("empty projections payload")}
	}

	return &SourceData{
		SourceID:    a.id,
		Kind:        KindProjections,
		FetchedAt:   time.Now(),
		Projections: rows,
	}, nil
}
