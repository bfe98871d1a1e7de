package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/procurement/internal/notify"
)

// EnqueueNotifications ставит уведомления в очередь на отправку.
func (r *PostgresRepository) EnqueueNotifications(ctx context.Context, ns ...notify.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(
			`INSERT INTO notifications (recipients, subject, body) VALUES ($1, $2, $3)`,
			n.Recipients, n.Subject, n.Body,
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}
	return nil
}

// LockBatch захватывает до batchSize ожидающих уведомлений на время lease.
// Захват с истёкшей арендой может быть перехвачен другим диспетчером.
func (r *PostgresRepository) LockBatch(ctx context.Context, owner string, batchSize int, lease time.Duration) ([]notify.Message, error) {
	rows, err := r.pool.Query(ctx,
		`WITH batch AS (
		     SELECT id FROM notifications
		     WHERE status = 'pending' AND (locked_until IS NULL OR locked_until < now())
		     ORDER BY created_at
		     LIMIT $2
		     FOR UPDATE SKIP LOCKED
		 )
		 UPDATE notifications n
		 SET locked_by = $1, locked_until = now() + make_interval(secs => $3)
		 FROM batch
		 WHERE n.id = batch.id
		 RETURNING n.id, n.recipients, n.subject, n.body, n.attempts, n.created_at`,
		owner, batchSize, lease.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("lock notifications: %w", err)
	}
	defer rows.Close()

	var res []notify.Message
	for rows.Next() {
		var m notify.Message
		if err := rows.Scan(&m.ID, &m.Notification.Recipients, &m.Notification.Subject,
			&m.Notification.Body, &m.Attempts, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// MarkSent отмечает уведомления как доставленные.
func (r *PostgresRepository) MarkSent(ctx context.Context, ids []int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET status = 'sent', locked_by = NULL, locked_until = NULL
		 WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("mark notifications sent: %w", err)
	}
	return nil
}

// MarkFailed фиксирует неудачную попытку. После maxAttempts попыток уведомление
// больше не отправляется.
func (r *PostgresRepository) MarkFailed(ctx context.Context, id int64, errMsg string, maxAttempts int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications
		 SET attempts = attempts + 1,
		     last_error = $2,
		     locked_by = NULL,
		     locked_until = NULL,
		     status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END
		 WHERE id = $1`,
		id, errMsg, maxAttempts,
	)
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}

var _ notify.Store = (*PostgresRepository)(nil)
