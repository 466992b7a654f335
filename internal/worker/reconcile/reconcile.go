// Package reconcile はサービス予約数の整合ジョブを提供する。
// 生存している予約数からservices.total_bookingsを再計算し、
// 値がずれているサービスのみを更新する。
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CorrectionRecorder は補正件数をメトリクスに記録するインターフェース。
type CorrectionRecorder interface {
	RecordLedgerCorrections(count int)
}

// reconcileQuery は予約数がずれているサービスのみを更新する。
// 予約が1件もないサービスは0件として集計する。
const reconcileQuery = `
UPDATE services AS s
SET total_bookings = live.n, updated_at = now()
FROM (
	SELECT sv.id, COUNT(b.id) AS n
	FROM services sv
	LEFT JOIN bookings b ON b.service_id = sv.id
	GROUP BY sv.id
) AS live
WHERE s.id = live.id AND s.total_bookings <> live.n`

// Job はサービス予約数の整合ジョブ。
// 何度実行しても結果は変わらない。
type Job struct {
	db       Executor
	logger   *slog.Logger
	recorder CorrectionRecorder
}

// NewJob は新しいJobを生成する。recorderはnilでもよい。
func NewJob(db Executor, logger *slog.Logger, recorder CorrectionRecorder) *Job {
	return &Job{
		db:       db,
		logger:   logger,
		recorder: recorder,
	}
}

// Run は予約数を再計算し、補正したサービス数を返す。
func (j *Job) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, reconcileQuery)
	if err != nil {
		j.logger.Error("予約数の整合ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("予約数の整合に失敗: %w", err)
	}

	corrected, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("補正件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("補正件数の取得に失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordLedgerCorrections(int(corrected))
	}

	attrs := []any{
		slog.Int64("corrected_count", corrected),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	}
	if corrected > 0 {
		j.logger.Warn("予約数のずれを補正しました", attrs...)
	} else {
		j.logger.Info("予約数の整合ジョブが完了しました", attrs...)
	}

	return corrected, nil
}

// Start は指定間隔のティッカーで整合ジョブを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("予約数の整合スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("予約数の整合スケジューラを停止しました")
			return
		case <-ticker.C:
			// エラーはRun内で記録済み
			_, _ = j.Run(ctx)
		}
	}
}
