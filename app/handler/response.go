package handler

// ApiResponse 统一的接口响应结构
type ApiResponse struct {
	Code    int    `json:"code"`    // 0 表示成功
	Message string `json:"message"` // 响应消息
	Data    any    `json:"data"`    // 响应数据
}
