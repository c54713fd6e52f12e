package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docflow/internal/model"
	"docflow/internal/repository"
)

// Locker 短时咨询锁（Redis SET NX PX）
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// DedupGuard 去重窗口：同一用户、类型、标题在窗口内只保留一条通知
type DedupGuard struct {
	notifications repository.NotificationRepository
	locker        Locker
	window        time.Duration
	logger        *zap.Logger
}

// NewDedupGuard 创建去重守卫；locker 为 nil 时并发重复触发只能尽力抑制
func NewDedupGuard(notifications repository.NotificationRepository, locker Locker, window time.Duration, logger *zap.Logger) *DedupGuard {
	return &DedupGuard{
		notifications: notifications,
		locker:        locker,
		window:        window,
		logger:        logger,
	}
}

// ShouldSuppress 窗口 [now-window, now] 内存在相同通知时返回其 ID
func (g *DedupGuard) ShouldSuppress(ctx context.Context, userID string, typ model.NotificationType, title string, now time.Time) (string, bool, error) {
	existing, err := g.notifications.FindLatest(ctx, userID, typ, title, now.Add(-g.window))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if existing.CreatedAt.After(now) {
		return "", false, nil
	}
	return existing.NotificationID, true, nil
}

// lockTTL 锁的存活时间覆盖"检查 + 持久化"即可
const lockTTL = 2 * time.Second

// lockPoll 锁被占用时轮询持有者结果的间隔
const lockPoll = 50 * time.Millisecond

// Acquire 尝试获取 (user, type, title) 三元组的咨询锁
// held=true 表示同一通知正在被并发分发；Redis 不可用时降级为不加锁
func (g *DedupGuard) Acquire(ctx context.Context, userID string, typ model.NotificationType, title string) (release func(), held bool) {
	noop := func() {}
	if g.locker == nil {
		return noop, false
	}

	key := fmt.Sprintf("notification:dedup:%s:%s:%s", userID, typ, title)
	release, ok, err := g.locker.TryLock(ctx, key, lockTTL)
	if err != nil {
		g.logger.Warn("获取去重锁失败，降级为无锁去重", zap.String("user_id", userID), zap.Error(err))
		return noop, false
	}
	if !ok {
		return noop, true
	}
	return release, false
}

// Enter 进入三元组的"检查 + 持久化"临界区
// 锁被他人持有时轮询去重窗口：持有者已落库则返回 existingID，调用方按重复处理；
// 持有者释放而未落库（例如写库失败）时接手锁继续；等待超过 lockTTL 后不再加锁
func (g *DedupGuard) Enter(ctx context.Context, userID string, typ model.NotificationType, title string, now func() time.Time) (release func(), existingID string, err error) {
	deadline := time.Now().Add(lockTTL)
	for {
		release, held := g.Acquire(ctx, userID, typ, title)
		if !held {
			return release, "", nil
		}

		id, suppressed, err := g.ShouldSuppress(ctx, userID, typ, title, now())
		if err != nil {
			return nil, "", err
		}
		if suppressed {
			return func() {}, id, nil
		}

		if !time.Now().Before(deadline) {
			g.logger.Warn("等待去重锁超时，放弃加锁", zap.String("user_id", userID), zap.String("type", string(typ)))
			return func() {}, "", nil
		}

		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(lockPoll):
		}
	}
}
