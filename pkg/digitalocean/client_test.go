package digitalocean

import (
	"context"
	"errors"
	"testing"

	"github.com/digitalocean/godo"
)

type fakeCDNs struct {
	cdn *godo.CDN
	err error
}

func (f fakeCDNs) Get(context.Context, string) (*godo.CDN, *godo.Response, error) {
	return f.cdn, nil, f.err
}

func TestCDNBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		cdns    fakeCDNs
		want    string
		wantErr bool
	}{
		{
			name: "endpoint",
			cdns: fakeCDNs{cdn: &godo.CDN{Endpoint: "signs.nyc3.cdn.digitaloceanspaces.com"}},
			want: "https://signs.nyc3.cdn.digitaloceanspaces.com",
		},
		{
			name: "custom domain wins",
			cdns: fakeCDNs{cdn: &godo.CDN{Endpoint: "signs.nyc3.cdn.digitaloceanspaces.com", CustomDomain: "cdn.example.org"}},
			want: "https://cdn.example.org",
		},
		{
			name:    "no endpoint",
			cdns:    fakeCDNs{cdn: &godo.CDN{}},
			wantErr: true,
		},
		{
			name:    "api error",
			cdns:    fakeCDNs{err: errors.New("401 unauthorized")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{cdns: tt.cdns}
			got, err := c.CDNBaseURL(context.Background(), "cdn-id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("CDNBaseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CDNBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
