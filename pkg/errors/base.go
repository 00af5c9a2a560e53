package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// 公共错误 (服务代码 00)，由中间件与 FromError 使用。
var (
	ErrInvalidParam  = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Invalid parameter", "参数无效"))
	ErrRouteNotFound = Register(New(MakeCode(ServiceCommon, CategoryResource, 1), http.StatusNotFound, codes.NotFound, "Route not found", "路由不存在"))

	// 未注册错误码的错误统一映射为 ErrInternal
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), http.StatusInternalServerError, codes.Internal, "Internal server error", "服务器内部错误"))
	ErrPanic    = Register(New(MakeCode(ServiceCommon, CategoryInternal, 2), http.StatusInternalServerError, codes.Internal, "Request handler panicked", "请求处理异常"))
)
