package store

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kart-io/catalog-chat/internal/pkg/textutil"
)

// Manifest 记录每个集合中已索引文档块的内容摘要，用于跳过未变化的文档块。
// 每个集合对应一个 bucket，键为文档块 ID，值为内容摘要。
type Manifest struct {
	db *bbolt.DB
}

// OpenManifest 打开（或创建）manifest 文件。
func OpenManifest(path string) (*Manifest, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	return &Manifest{db: db}, nil
}

func contentDigest(c *Chunk) []byte {
	return []byte(textutil.Fingerprint(c.Content))
}

// Pending 返回内容与已记录摘要不同（或从未记录）的文档块，保持输入顺序。
func (m *Manifest) Pending(collection string, chunks []*Chunk) ([]*Chunk, error) {
	pending := make([]*Chunk, 0, len(chunks))
	err := m.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		for _, c := range chunks {
			if b == nil {
				pending = append(pending, c)
				continue
			}
			if string(b.Get([]byte(c.ID))) != string(contentDigest(c)) {
				pending = append(pending, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return pending, nil
}

// Mark 记录文档块已成功写入向量存储。
func (m *Manifest) Mark(collection string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := m.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if err := b.Put([]byte(c.ID), contentDigest(c)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}
	return nil
}

// Count 返回集合中已记录的文档块数量。
func (m *Manifest) Count(collection string) (int, error) {
	var n int
	err := m.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket([]byte(collection)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Reset 清空集合的记录。远端集合被删除或重建后调用，使所有文档块重新写入。
func (m *Manifest) Reset(collection string) error {
	err := m.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket([]byte(collection))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reset manifest: %w", err)
	}
	return nil
}

// Close 关闭 manifest 文件。
func (m *Manifest) Close() error {
	return m.db.Close()
}
