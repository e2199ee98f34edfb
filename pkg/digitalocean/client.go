package digitalocean

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digitalocean/godo"
)

type cdnGetter interface {
	Get(ctx context.Context, id string) (*godo.CDN, *godo.Response, error)
}

type client struct {
	cdns cdnGetter
}

func NewClient(token string) *client {
	return &client{
		cdns: godo.NewFromToken(token).CDNs,
	}
}

// CDNBaseURL returns the https base URL that serves objects of the Spaces
// bucket behind the given CDN. A custom domain wins over the default endpoint.
func (c *client) CDNBaseURL(ctx context.Context, cdnID string) (string, error) {
	cdn, _, err := c.cdns.Get(ctx, cdnID)
	if err != nil {
		return "", fmt.Errorf("fetching cdn %s: %w", cdnID, err)
	}

	host := cdn.Endpoint
	if cdn.CustomDomain != "" {
		host = cdn.CustomDomain
	}
	if host == "" {
		return "", fmt.Errorf("cdn %s has no endpoint", cdnID)
	}

	slog.Info("resolved spaces cdn", "cdn_id", cdnID, "host", host)

	return "https://" + host, nil
}
