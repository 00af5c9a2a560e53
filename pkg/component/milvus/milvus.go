// Package milvus stores product chunks in Milvus through the v2 SDK.
//
// A chunk collection has a fixed schema: a caller supplied VARCHAR primary
// key, the embedding, and the source file, row number and rendered text of
// the catalog row. Vectors get an IVF_FLAT cosine index.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/catalog-chat/pkg/options/milvus"
)

// Field names and VARCHAR limits of a chunk collection. Content holds up
// to 512 characters, which is at most 2048 bytes of UTF-8.
const (
	FieldID        = "id"
	FieldEmbedding = "embedding"
	FieldSource    = "source"
	FieldRow       = "row"
	FieldContent   = "content"

	maxIDLen      = 64
	maxSourceLen  = 1024
	maxContentLen = 4096
)

var outputFields = []string{FieldSource, FieldRow, FieldContent}

// Chunk is one catalog row as stored in Milvus.
type Chunk struct {
	ID      string
	Source  string
	Row     int64
	Content string
	Vector  []float32
}

// Hit is a search result. Score is the cosine similarity.
type Hit struct {
	Chunk
	Score float32
}

// Client is a connected Milvus client.
type Client struct {
	mc     *milvusclient.Client
	nlist  int
	nprobe string
}

// New connects to Milvus within opts.Timeout.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	mc, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", opts.Address, err)
	}
	return &Client{mc: mc, nlist: opts.NList, nprobe: strconv.Itoa(opts.NProbe)}, nil
}

// Close closes the connection.
func (c *Client) Close(ctx context.Context) error {
	return c.mc.Close(ctx)
}

// EnsureCollection creates and indexes the chunk collection if it is
// missing, then loads it for search. An existing collection is only loaded.
func (c *Client) EnsureCollection(ctx context.Context, name, description string, dim int) error {
	exists, err := c.mc.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if !exists {
		if err := c.create(ctx, name, description, dim); err != nil {
			return err
		}
	}

	task, err := c.mc.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("load collection %s: %w", name, err)
	}
	return task.Await(ctx)
}

func (c *Client) create(ctx context.Context, name, description string, dim int) error {
	schema := entity.NewSchema().
		WithName(name).
		WithDescription(description).
		WithAutoID(false).
		WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxIDLen).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim))).
		WithField(entity.NewField().WithName(FieldSource).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxSourceLen)).
		WithField(entity.NewField().WithName(FieldRow).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(FieldContent).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxContentLen))

	if err := c.mc.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, c.nlist)
	task, err := c.mc.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, FieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("index collection %s: %w", name, err)
	}
	return task.Await(ctx)
}

// Upsert writes rows keyed by ID and flushes, so they are searchable when
// Upsert returns.
func (c *Client) Upsert(ctx context.Context, collection string, rows []Chunk) error {
	if len(rows) == 0 {
		return nil
	}

	dim := len(rows[0].Vector)
	var (
		ids      = make([]string, len(rows))
		vectors  = make([][]float32, len(rows))
		sources  = make([]string, len(rows))
		rowNums  = make([]int64, len(rows))
		contents = make([]string, len(rows))
	)
	for i, r := range rows {
		if len(r.Vector) != dim {
			return fmt.Errorf("row %s has %d dimensions, want %d", r.ID, len(r.Vector), dim)
		}
		ids[i], vectors[i], sources[i], rowNums[i], contents[i] = r.ID, r.Vector, r.Source, r.Row, r.Content
	}

	_, err := c.mc.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collection,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnFloatVector(FieldEmbedding, dim, vectors),
		column.NewColumnVarChar(FieldSource, sources),
		column.NewColumnInt64(FieldRow, rowNums),
		column.NewColumnVarChar(FieldContent, contents),
	))
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}

	task, err := c.mc.Flush(ctx, milvusclient.NewFlushOption(collection))
	if err != nil {
		return fmt.Errorf("flush %s: %w", collection, err)
	}
	return task.Await(ctx)
}

// Search returns at most topK hits ordered by descending score.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error) {
	results, err := c.mc.Search(ctx, milvusclient.NewSearchOption(collection, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", c.nprobe).
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	rs := results[0]
	hits := make([]Hit, rs.ResultCount)
	for i := range hits {
		hits[i].Score = rs.Scores[i]
		if ids, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hits[i].ID = ids.Data()[i]
		}
	}
	for _, col := range rs.Fields {
		switch col := col.(type) {
		case *column.ColumnVarChar:
			for i := range hits {
				switch col.Name() {
				case FieldSource:
					hits[i].Source = col.Data()[i]
				case FieldContent:
					hits[i].Content = col.Data()[i]
				}
			}
		case *column.ColumnInt64:
			if col.Name() == FieldRow {
				for i := range hits {
					hits[i].Row = col.Data()[i]
				}
			}
		}
	}
	return hits, nil
}

// Count returns the number of rows in collection.
func (c *Client) Count(ctx context.Context, collection string) (int64, error) {
	stats, err := c.mc.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collection))
	if err != nil {
		return 0, fmt.Errorf("stats of %s: %w", collection, err)
	}
	n, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(n, 10, 64)
}
