package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// CycleRunner は期限切れ処理を1サイクル実行する
type CycleRunner interface {
	ReclaimStale(ctx context.Context) (application.ReclaimResult, error)
}

// ExpiryReconciler は一定間隔で期限切れ予約の処理を起動するワーカー
// 複数インスタンスで動かしても、処理するのは排他トークンを取れた1台だけ
type ExpiryReconciler struct {
	runner   CycleRunner
	interval time.Duration

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewExpiryReconciler は新しいリコンサイラーを作成
func NewExpiryReconciler(runner CycleRunner, interval time.Duration) *ExpiryReconciler {
	return &ExpiryReconciler{
		runner:   runner,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はバックグラウンドでワーカーを開始する
// 2回目以降の呼び出しと Stop 後の呼び出しは何もしない
func (r *ExpiryReconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.isStopped() {
		return
	}
	r.started = true

	logger.Info("期限切れ予約リコンサイラー開始", zap.Duration("interval", r.interval))
	go r.loop(ctx)
}

// Stop はワーカーを停止し、実行中のサイクルが終わるまで待つ
// 何度呼んでもよく、Start 前に呼んでもよい
func (r *ExpiryReconciler) Stop() {
	r.mu.Lock()
	r.stopOnce.Do(func() { close(r.stopCh) })
	started := r.started
	r.mu.Unlock()

	if started {
		<-r.doneCh
	}
}

// RunOnce は1サイクルを同期的に実行する
func (r *ExpiryReconciler) RunOnce(ctx context.Context) (application.ReclaimResult, error) {
	return r.runner.ReclaimStale(ctx)
}

func (r *ExpiryReconciler) isStopped() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

// ctx のキャンセルはサイクルの合間にだけ効く
// 実行中のサイクルは打ち切らず、最後まで処理させる
func (r *ExpiryReconciler) loop(ctx context.Context) {
	cycleCtx := context.WithoutCancel(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ予約リコンサイラー停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("期限切れ予約リコンサイラー停止（シグナル受信）")
			return
		case <-ticker.C:
			r.cycle(cycleCtx)
		}
	}
}

// cycle は1サイクル実行する。エラーは次のティックで再試行する
func (r *ExpiryReconciler) cycle(ctx context.Context) {
	log := logger.Named("reconciler")

	result, err := r.runner.ReclaimStale(ctx)
	if err != nil {
		log.Error("期限切れ予約の処理に失敗", zap.Error(err))
		return
	}
	if result.Skipped {
		log.Debug("他のインスタンスが処理中")
		return
	}
	if result.Reclaimed > 0 || result.Failed > 0 {
		log.Info("期限切れ予約を解放",
			zap.Int("reclaimed", result.Reclaimed),
			zap.Int("failed", result.Failed),
		)
	}
}
