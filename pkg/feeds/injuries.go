package feeds

import (
	"context"
	"strings"
	"time"
)

// InjuryAdapter pulls roster/injury reports from a team-news API.
type InjuryAdapter struct {
	id     string
	client *Client
}

type injuryResponse struct {
	Reports []struct {
		PlayerID string  `json:"player_id"`
		Status   string  `json:"status"`
		Note     string  `json:"note"`
		Impact   float64 `json:"impact"`
		Timeline string  `json:"timeline"`
	} `json:"reports"`
}

// NewInjuryAdapter creates an injury-report source with the given id
func NewInjuryAdapter(id string, client *Client) *InjuryAdapter {
	return &InjuryAdapter{id: id, client: client}
}

func (a *InjuryAdapter) ID() string {
	return a.id
}

func (a *InjuryAdapter) Kind() SourceKind {
	return KindInjuries
}

func (a *InjuryAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.Ping(ctx, "/health")
}

// Fetch retrieves current injury reports; unknown statuses get a conservative
// impact estimate so downstream risk banding still has a number to work with.
func (a *InjuryAdapter) Fetch(ctx context.Context) (*SourceData, error) {
	var resp injuryResponse
	if err := a.client.GetJSON(ctx, "/v1/reports", nil, &resp); err != nil {
		return nil, &FetchError{SourceID: a.id, Err: err}
	}

	rows := make([]InjuryRow, 0, len(resp.Reports))
	for _, r := range resp.Reports {
		if r.PlayerID == "" {
			continue
		}
		impact := r.Impact
		if impact <= 0 {
			impact = impactForStatus(r.Status)
		}
		if impact > 1 {
			impact = 1
		}
		rows = append(rows, InjuryRow{
			EntityID: r.PlayerID,
			Status:   strings.ToLower(r.Status),
			Detail:   r.Note,
			Impact:   impact,
			Timeline: r.Timeline,
		})
	}

	return &SourceData{
		SourceID:  a.id,
		Kind:      KindInjuries,
		FetchedAt: time.Now(),
		Injuries:  rows,
	}, nil
}

// impactForStatus maps provider status labels to a default numeric impact
func impactForStatus(status string) float64 {
	switch strings.ToLower(status) {
	case "out", "injured_reserve":
		return 0.9
	case "doubtful":
		return 0.7
	case "questionable":
		return 0.4
	case "probable", "day_to_day":
		return 0.2
	default:
		return 0.1
	}
}
