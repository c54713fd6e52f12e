// Package errors 定义跨模块共享的错误分类。
// 各业务模块的哨兵错误通过 %w 包装这里的分类错误，
// 调用方既可以匹配具体错误，也可以按分类匹配。
package errors

import "errors"

var (
	// ErrNotFound 资源不存在（文档、用户、投票记录等），调用方应视为致命错误
	ErrNotFound = errors.New("资源不存在")

	// ErrValidation 参数或状态校验失败，在任何写操作之前拒绝
	ErrValidation = errors.New("参数校验失败")

	// ErrChannelUnavailable 实时或推送通道未配置/不可达，分发降级为仅持久化
	ErrChannelUnavailable = errors.New("通知通道不可用")

	// ErrPartialDelivery 部分推送 Token 发送失败，仅记录在结果中
	ErrPartialDelivery = errors.New("部分推送发送失败")

	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
)
