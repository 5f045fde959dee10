package datasource

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/quantforge/papertrade/pkg/errors"
)

// PolygonSource serves quotes from the Polygon REST API. The free tier
// has no real-time trades, so the previous daily close stands in as
// the latest price.
type PolygonSource struct {
	client *polygon.Client
}

// NewPolygonSource creates a quote source with the given API key.
func NewPolygonSource(apiKey string) (*PolygonSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon api key is empty")
	}

	return &PolygonSource{client: polygon.New(apiKey)}, nil
}

// LatestPrice implements QuoteSource.
func (p *PolygonSource) LatestPrice(ctx context.Context, symbol string) (Quote, error) {
	res, err := p.client.GetPreviousCloseAgg(ctx, &models.GetPreviousCloseAggParams{
		Ticker: symbol,
	})
	if err != nil {
		return Quote{}, errors.Wrapf(errors.ErrCodeDataFetchFailure, err, "polygon quote failed for %s", symbol)
	}

	if len(res.Results) == 0 {
		return Quote{}, errors.Newf(errors.ErrCodeMissingPriceData, "polygon returned no bars for %s", symbol)
	}

	agg := res.Results[0]

	return Quote{
		Symbol: symbol,
		Price:  agg.Close,
		AsOf:   time.Time(agg.Timestamp),
	}, nil
}
