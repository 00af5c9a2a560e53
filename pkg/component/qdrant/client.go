// Package qdrant wraps the Qdrant gRPC API for product chunk storage.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	qdrantopts "github.com/kart-io/catalog-chat/pkg/options/qdrant"
)

// Client holds the gRPC connection and the points/collections stubs.
type Client struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	opts        *qdrantopts.Options
}

// New dials Qdrant. The connection is established lazily by gRPC.
func New(opts *qdrantopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("qdrant options is nil")
	}

	creds := insecure.NewCredentials()
	if opts.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if opts.APIKey != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(apiKeyInterceptor(opts.APIKey)))
	}

	conn, err := grpc.NewClient(opts.Addr(), dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Client{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		opts:        opts,
	}, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// EnsureCollection creates a cosine collection of the given dimension
// unless it already exists.
func (c *Client) EnsureCollection(ctx context.Context, name string, dimension int) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: name})
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}

	_, err = c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{
				Size:     uint64(dimension),
				Distance: pb.Distance_Cosine,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Point is a vector with its string payload and integer payload.
type Point struct {
	UUID    string
	Vector  []float32
	Strings map[string]string
	Ints    map[string]int64
}

// Upsert writes points and waits until they are applied.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	structs := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		payload := make(map[string]*pb.Value, len(p.Strings)+len(p.Ints))
		for k, v := range p.Strings {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		for k, v := range p.Ints {
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: v}}
		}
		structs[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: p.UUID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}}},
			Payload: payload,
		}
	}

	wait := true
	if _, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Hit is one scored point returned by Search.
type Hit struct {
	UUID    string
	Score   float32
	Payload map[string]*pb.Value
}

// Search returns up to limit points whose score is at least threshold.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float32) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		ScoreThreshold: &threshold,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		hits[i] = Hit{
			UUID:    pt.GetId().GetUuid(),
			Score:   pt.GetScore(),
			Payload: pt.GetPayload(),
		}
	}
	return hits, nil
}

// Count returns the exact number of points in a collection.
func (c *Client) Count(ctx context.Context, collection string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	exact := true
	resp, err := c.points.Count(ctx, &pb.CountPoints{CollectionName: collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int64(resp.GetResult().GetCount()), nil
}
