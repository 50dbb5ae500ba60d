package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"dealsmap/models"
	"dealsmap/validator"
)

// ErrDealNotFound is returned when no deal has the requested id.
var ErrDealNotFound = errors.New("deal not found")

const dealColumns = `id, title, description, location, latitude, longitude, category, price, original_price,
	day, is_recurring, time_window, start_time, end_time, images, operating_hours,
	start_date, end_date, is_active, created_at, updated_at`

// DealRepository reads and writes the deals table.
type DealRepository struct {
	db        *sql.DB
	driver    string
	validator *validator.Validator
}

// NewDealRepository creates a repository over db. driver selects the SQL
// dialect for statements that differ between postgres and sqlite3.
func NewDealRepository(db *sql.DB, driver string) *DealRepository {
	return &DealRepository{db: db, driver: driver, validator: validator.New()}
}

// ListDeals returns every deal ordered by id.
func (r *DealRepository) ListDeals(ctx context.Context) ([]models.Deal, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+dealColumns+" FROM deals ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return deals, nil
}

// GetDeal returns the deal with the given id or ErrDealNotFound.
func (r *DealRepository) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+dealColumns+" FROM deals WHERE id = $1 LIMIT 1", id)
	d, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deal %d: %w", id, err)
	}
	return &d, nil
}

// Categories returns the distinct non-null categories in alphabetical order.
func (r *DealRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT category FROM deals WHERE category IS NOT NULL ORDER BY category ASC")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// InsertDeal validates and stores a deal, returning its new id.
func (r *DealRepository) InsertDeal(ctx context.Context, d models.Deal) (int64, error) {
	if err := r.validator.ValidateDeal(d); err != nil {
		return 0, err
	}

	var images any
	if d.Images != nil {
		images = pq.StringArray(d.Images)
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO deals (title, description, location, latitude, longitude, category, price, original_price,
			day, is_recurring, time_window, start_time, end_time, images, operating_hours,
			start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`, d.Title, d.Description, d.Location, d.Latitude, d.Longitude, d.Category, d.Price, d.OriginalPrice,
		string(d.Day), d.IsRecurring, d.TimeWindow, d.StartTime, d.EndTime, images, d.OperatingHours,
		d.StartDate, d.EndDate, d.IsActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert deal %q: %w", d.Title, err)
	}
	return id, nil
}

// Truncate removes all deals.
func (r *DealRepository) Truncate(ctx context.Context) error {
	query := "TRUNCATE deals RESTART IDENTITY"
	if r.driver == DriverSQLite {
		query = "DELETE FROM deals"
	}
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate deals: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (r *DealRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row rowScanner) (models.Deal, error) {
	var (
		d                                      models.Deal
		day                                    string
		description, category, price, original sql.NullString
		timeWindow, startTime, endTime, hours  sql.NullString
		images                                 pq.StringArray
		startDate, endDate, updatedAt          sql.NullTime
	)

	err := row.Scan(&d.ID, &d.Title, &description, &d.Location, &d.Latitude, &d.Longitude, &category, &price, &original,
		&day, &d.IsRecurring, &timeWindow, &startTime, &endTime, &images, &hours,
		&startDate, &endDate, &d.IsActive, &d.CreatedAt, &updatedAt)
	if err != nil {
		return d, err
	}

	d.Day = models.Day(day)
	d.Description = nullString(description)
	d.Category = nullString(category)
	d.Price = nullString(price)
	d.OriginalPrice = nullString(original)
	d.TimeWindow = nullString(timeWindow)
	d.StartTime = nullString(startTime)
	d.EndTime = nullString(endTime)
	d.StartDate = nullTime(startDate)
	d.EndDate = nullTime(endDate)
	d.UpdatedAt = nullTime(updatedAt)
	if len(images) > 0 {
		d.Images = []string(images)
	}
	if hours.Valid {
		var oh models.OperatingHours
		if err := oh.Scan(hours.String); err != nil {
			return d, err
		}
		d.OperatingHours = &oh
	}
	return d, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
