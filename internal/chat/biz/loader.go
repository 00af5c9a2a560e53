package biz

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-chat/internal/chat/store"
	"github.com/kart-io/catalog-chat/internal/pkg/catalog"
	"github.com/kart-io/catalog-chat/internal/pkg/textutil"
	"github.com/kart-io/catalog-chat/pkg/errors"
)

// DefaultMaxChunkChars 文档块默认最大字符数。
const DefaultMaxChunkChars = 512

// SkippedSource 记录无法导入的文件。
type SkippedSource struct {
	Path string
	Err  error
}

// LoadResult 文档导入结果。
type LoadResult struct {
	// Chunks 按文件顺序、行顺序排列的文档块。
	Chunks []*store.Chunk
	// Skipped 被跳过的文件及原因。
	Skipped []SkippedSource
}

// DocumentLoader 将商品 CSV 转换为文档块。
type DocumentLoader struct {
	maxChars int
}

// NewDocumentLoader 创建文档加载器，maxChars <= 0 时使用默认值。
func NewDocumentLoader(maxChars int) *DocumentLoader {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	return &DocumentLoader{maxChars: maxChars}
}

// ChunkID 由来源路径与行号生成确定性 ID。
func ChunkID(source string, row int) string {
	return textutil.Fingerprint(source, strconv.Itoa(row))
}

// Load 依次读取文件。无法读取或解析的文件记录到 Skipped 并继续处理其余文件。
func (l *DocumentLoader) Load(paths []string) *LoadResult {
	result := &LoadResult{}
	for _, path := range paths {
		records, err := readFile(path)
		if err != nil {
			logger.Warnw("skipping catalog file", "path", path, "error", err.Error())
			result.Skipped = append(result.Skipped, SkippedSource{
				Path: path,
				Err:  errors.ErrIngestion.WithCause(err),
			})
			continue
		}

		for _, rec := range records {
			result.Chunks = append(result.Chunks, l.toChunk(rec))
		}
		logger.Infow("catalog file loaded", "path", path, "rows", len(records))
	}
	return result
}

func (l *DocumentLoader) toChunk(rec *catalog.Record) *store.Chunk {
	return &store.Chunk{
		ID:      ChunkID(rec.Source, rec.Row),
		Source:  rec.Source,
		Row:     rec.Row,
		Content: textutil.Clip(rec.Render(), l.maxChars),
	}
}

func readFile(path string) ([]*catalog.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := catalog.ReadRecords(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
