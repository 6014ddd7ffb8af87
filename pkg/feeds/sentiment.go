package feeds

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// SentimentAdapter pulls aggregated social sentiment per subject from a
// social-listening API.
type SentimentAdapter struct {
	id        string
	client    *Client
	minVolume int
}

type sentimentResponse struct {
	Window  string `json:"window"`
	Results []struct {
		Subject  string   `json:"subject"`
		Score    float64  `json:"score"`
		Mentions int      `json:"mentions"`
		Trending bool     `json:"trending"`
		Keywords []string `json:"keywords"`
	} `json:"results"`
}

// NewSentimentAdapter creates a sentiment source; minVolume filters out
// subjects with too few mentions to be meaningful.
func NewSentimentAdapter(id string, client *Client, minVolume int) *SentimentAdapter {
	return &SentimentAdapter{id: id, client: client, minVolume: minVolume}
}

func (a *SentimentAdapter) ID() string {
	return a.id
}

func (a *SentimentAdapter) Kind() SourceKind {
	return KindSentiment
}

func (a *SentimentAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.Ping(ctx, "/health")
}

// Fetch retrieves the provider's current sentiment window
func (a *SentimentAdapter) Fetch(ctx context.Context) (*SourceData, error) {
	params := url.Values{}
	if a.minVolume > 0 {
		params.Set("min_mentions", strconv.Itoa(a.minVolume))
	}

	var resp sentimentResponse
	if err := a.client.GetJSON(ctx, "/v2/sentiment", params, &resp); err != nil {
		return nil, &FetchError{SourceID: a.id, Err: err}
	}

	rows := make([]SentimentRow, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Subject == "" {
			continue
		}
		rows = append(rows, SentimentRow{
			EntityID: r.Subject,
			Score:    clampScore(r.Score),
			Volume:   r.Mentions,
			Trending: r.Trending,
			Keywords: r.Keywords,
		})
	}

	return &SourceData{
		SourceID:  a.id,
		Kind:      KindSentiment,
		FetchedAt: time.Now(),
		Sentiment: rows,
	}, nil
}

// clampScore keeps provider scores inside the documented [-1, 1] range
func clampScore(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
