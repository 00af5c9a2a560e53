package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// 聊天服务代码: 30 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 30 (catalog chat)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrInvalidChatRequest = Register(New(MakeCode(ServiceChat, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Invalid chat request", "聊天请求无效"))

	// 配置错误 (类别 12)，在构造阶段返回
	ErrConfiguration = Register(New(MakeCode(ServiceChat, CategoryConfig, 1), http.StatusInternalServerError, codes.FailedPrecondition, "Configuration error", "配置错误"))

	// 文档导入错误 (类别 07)
	ErrIngestion = Register(New(MakeCode(ServiceChat, CategoryInternal, 1), http.StatusInternalServerError, codes.Internal, "Document ingestion failed", "文档导入失败"))

	// 检索错误 (类别 10 / 11)
	ErrRetrieval        = Register(New(MakeCode(ServiceChat, CategoryNetwork, 1), http.StatusServiceUnavailable, codes.Unavailable, "Retrieval failed", "检索失败"))
	ErrRetrievalTimeout = Register(New(MakeCode(ServiceChat, CategoryTimeout, 1), http.StatusGatewayTimeout, codes.DeadlineExceeded, "Retrieval timeout", "检索超时"))

	// 生成错误 (类别 10 / 11)
	ErrGeneration        = Register(New(MakeCode(ServiceChat, CategoryNetwork, 2), http.StatusBadGateway, codes.Unavailable, "Generation failed", "生成失败"))
	ErrEmptyGeneration   = Register(New(MakeCode(ServiceChat, CategoryNetwork, 3), http.StatusBadGateway, codes.Unavailable, "Generation returned no content", "模型未返回内容"))
	ErrGenerationTimeout = Register(New(MakeCode(ServiceChat, CategoryTimeout, 2), http.StatusGatewayTimeout, codes.DeadlineExceeded, "Generation timeout", "生成超时"))

	// 会话错误 (类别 07 / 09)
	ErrSession         = Register(New(MakeCode(ServiceChat, CategoryCache, 1), http.StatusInternalServerError, codes.Internal, "Session store failed", "会话存储失败"))
	ErrSessionNotFound = Register(New(MakeCode(ServiceChat, CategoryInternal, 2), http.StatusInternalServerError, codes.FailedPrecondition, "Session not created", "会话未创建"))
)

// IsRetrievalError reports whether err is a retrieval failure or timeout.
func IsRetrievalError(err error) bool {
	return GetCode(err) == ErrRetrieval.Code || GetCode(err) == ErrRetrievalTimeout.Code
}

// IsGenerationError reports whether err is any generation failure.
func IsGenerationError(err error) bool {
	switch GetCode(err) {
	case ErrGeneration.Code, ErrEmptyGeneration.Code, ErrGenerationTimeout.Code:
		return true
	}
	return false
}
