// Package store 提供商品文档块的向量存储层。
//
// VectorStore 是检索器与具体向量数据库之间的唯一边界，
// 目前提供 Milvus、Qdrant 以及仅用于开发与测试的内存实现，
// 均以余弦相似度打分，并以文档块 ID 为主键覆盖写入。
// Manifest 基于 bbolt 记录已索引内容的摘要，用于增量索引。
package store
