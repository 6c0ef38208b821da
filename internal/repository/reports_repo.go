package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type SalesSummaryRow struct {
	Period        string `gorm:"column:period"`
	PosTotal      string `gorm:"column:pos_total"`
	DispatchTotal string `gorm:"column:dispatch_total"`
	SaleCount     int    `gorm:"column:sale_count"`
}

type DebtorRow struct {
	ClientID   string `gorm:"column:client_id"`
	ClientName string `gorm:"column:client_name"`
	Debt       string `gorm:"column:debt"`
}

type ReportsRepository interface {
	SalesSummary(ctx context.Context, start, end time.Time) ([]SalesSummaryRow, error)
	TopDebtors(ctx context.Context, limit int) ([]DebtorRow, error)
}

type reportsRepository struct {
	db *gorm.DB
}

func NewReportsRepository(db *gorm.DB) ReportsRepository {
	return &reportsRepository{db: db}
}

func (r *reportsRepository) SalesSummary(ctx context.Context, start, end time.Time) ([]SalesSummaryRow, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC('day', s.date), 'YYYY-MM-DD') AS period,
			COALESCE(SUM(CASE WHEN s.type = 'pos' THEN s.total_amount ELSE 0 END), 0)::text AS pos_total,
			COALESCE(SUM(CASE WHEN s.type = 'dispatch' THEN s.total_amount ELSE 0 END), 0)::text AS dispatch_total,
			COUNT(*) AS sale_count
		FROM sales s
		WHERE s.date >= $1 AND s.date <= $2
		GROUP BY DATE_TRUNC('day', s.date)
		ORDER BY period
	`

	var rows []SalesSummaryRow
	if err := r.db.WithContext(ctx).Raw(query, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query sales summary: %w", err)
	}
	return rows, nil
}

func (r *reportsRepository) TopDebtors(ctx context.Context, limit int) ([]DebtorRow, error) {
	var rows []DebtorRow
	err := r.db.WithContext(ctx).Table("clients").
		Select("id as client_id, name as client_name, debt::text as debt").
		Where("debt > 0").
		Order("debt DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top debtors: %w", err)
	}
	return rows, nil
}
