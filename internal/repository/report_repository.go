package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nurpe/orderflow/internal/model"
)

// StatusCount is one row of a per-status aggregate.
type StatusCount struct {
	Status model.Status
	Count  int64
	Reach  int64
}

// OrderSheetFunnel aggregates the order sheets shared from a price list by
// status, summing their reach counters.
func (s *Store) OrderSheetFunnel(ctx context.Context, priceListID uuid.UUID) ([]StatusCount, error) {
	query := `
        SELECT
            os.status AS status,
            COUNT(*) AS count,
            COALESCE(SUM(os.reach_count), 0) AS reach
        FROM order_sheets os
        WHERE os.source_price_list_id = ?
        GROUP BY os.status
        ORDER BY os.status ASC
    `
	var rows []StatusCount
	if err := s.db.WithContext(ctx).Raw(query, priceListID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
