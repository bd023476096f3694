package grpcx

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client calls ChatService for other internal services.
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
}

type ClientOptions struct {
	Target  string
	Timeout time.Duration
	Dial    []grpc.DialOption
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Target == "" {
		return nil, fmt.Errorf("chat client: empty target")
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts.Dial...)

	conn, err := grpc.NewClient(opts.Target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("chat client: new client failed: %w", err)
	}
	c := NewClientFromConn(conn, opts.Timeout)
	c.closer = conn.Close
	return c, nil
}

func NewClientFromConn(conn grpc.ClientConnInterface, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{conn: conn, timeout: timeout, closer: func() error { return nil }}
}

func (c *Client) Close() error { return c.closer() }

func (c *Client) invoke(ctx context.Context, token, method string, in, out any) error {
	rpcCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if token != "" {
		rpcCtx = metadata.AppendToOutgoingContext(rpcCtx, mdAuthorization, "Bearer "+token)
	}
	return c.conn.Invoke(rpcCtx, "/"+serviceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
}

func (c *Client) ListContacts(ctx context.Context, token string) (*ListContactsResponse, error) {
	out := new(ListContactsResponse)
	if err := c.invoke(ctx, token, "ListContacts", &ListContactsRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RecentMessages(ctx context.Context, token, room string, limit int) (*RecentMessagesResponse, error) {
	out := new(RecentMessagesResponse)
	in := &RecentMessagesRequest{Room: room, Limit: limit}
	if err := c.invoke(ctx, token, "RecentMessages", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
