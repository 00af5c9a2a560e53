// Package biz 提供商品问答服务的业务逻辑层。
//
// 该包将一次问答拆分为以下组件：
//   - DocumentLoader: 读取商品 CSV，每行渲染为一个文档块
//   - Retriever: 向量化查询并按阈值、TopK 检索文档块
//   - PromptTemplate: 组装系统指令、历史对话与当前输入
//   - AnswerChain: 顺序执行检索、组装、生成
//   - SessionStore: 会话历史存储（内存或 Redis）
//   - Orchestrator: 按会话加锁，串联历史读取、问答与写回
//   - Indexer: 批量向量化并写入向量存储
package biz
