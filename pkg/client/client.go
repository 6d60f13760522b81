package client

import "context"

type Client interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}
