// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// DoctorRepository 医生仓储
type DoctorRepository struct {
	db DB
}

// NewDoctorRepository 创建医生仓储
func NewDoctorRepository(db DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// Create 创建医生
func (r *DoctorRepository) Create(ctx context.Context, doc *model.Doctor) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `
		INSERT INTO doctors (
			id, name, unit_id, category, active, last_standby, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Name, doc.UnitID, doc.Category, doc.Active, doc.LastStandby,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建医生失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取医生
func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, name, unit_id, category, active, last_standby, created_at, updated_at
		FROM doctors
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scanDoctor(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新医生
func (r *DoctorRepository) Update(ctx context.Context, doc *model.Doctor) error {
	doc.UpdatedAt = time.Now()

	query := `
		UPDATE doctors SET
			name = $2, unit_id = $3, category = $4, active = $5,
			last_standby = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Name, doc.UnitID, doc.Category, doc.Active,
		doc.LastStandby, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新医生失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("医生不存在")
	}

	return nil
}

// Delete 软删除医生
func (r *DoctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE doctors SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除医生失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("医生不存在")
	}

	return nil
}

// List 查询医生列表
func (r *DoctorRepository) List(ctx context.Context, filter ListFilter) ([]*model.Doctor, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.UnitID != nil {
		conditions = append(conditions, fmt.Sprintf("unit_id = $%d", argIndex))
		args = append(args, *filter.UnitID)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	if cat, ok := filter.Extra["category"].(string); ok && cat != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, cat)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM doctors WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT id, name, unit_id, category, active, last_standby, created_at, updated_at
		FROM doctors
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var doctors []*model.Doctor
	for rows.Next() {
		doc, err := r.scanDoctorRow(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, doc)
	}

	return doctors, total, nil
}

// ListActive 获取所有在职医生
func (r *DoctorRepository) ListActive(ctx context.Context) ([]*model.Doctor, error) {
	query := `
		SELECT id, name, unit_id, category, active, last_standby, created_at, updated_at
		FROM doctors
		WHERE active = TRUE AND deleted_at IS NULL
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询在职医生失败: %w", err)
	}
	defer rows.Close()

	var doctors []*model.Doctor
	for rows.Next() {
		doc, err := r.scanDoctorRow(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, doc)
	}

	return doctors, nil
}

// scanDoctor 扫描单行医生数据
func (r *DoctorRepository) scanDoctor(row *sql.Row) (*model.Doctor, error) {
	doc := &model.Doctor{}
	err := row.Scan(
		&doc.ID, &doc.Name, &doc.UnitID, &doc.Category, &doc.Active,
		&doc.LastStandby, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描医生数据失败: %w", err)
	}
	return doc, nil
}

// scanDoctorRow 扫描Rows中的医生数据
func (r *DoctorRepository) scanDoctorRow(rows *sql.Rows) (*model.Doctor, error) {
	doc := &model.Doctor{}
	err := rows.Scan(
		&doc.ID, &doc.Name, &doc.UnitID, &doc.Category, &doc.Active,
		&doc.LastStandby, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描医生数据失败: %w", err)
	}
	return doc, nil
}

// UnitRepository 科室仓储
type UnitRepository struct {
	db DB
}

// NewUnitRepository 创建科室仓储
func NewUnitRepository(db DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// Create 创建科室
func (r *UnitRepository) Create(ctx context.Context, unit *model.Unit) error {
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	now := time.Now()
	unit.CreatedAt = now
	unit.UpdatedAt = now

	query := `
		INSERT INTO units (id, name, clinic_weekdays, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		unit.ID, unit.Name, toInt64Array(unit.ClinicWeekdays), unit.CreatedAt, unit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建科室失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取科室
func (r *UnitRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Unit, error) {
	query := `
		SELECT id, name, clinic_weekdays, created_at, updated_at
		FROM units
		WHERE id = $1 AND deleted_at IS NULL
	`

	unit := &model.Unit{}
	var weekdays pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&unit.ID, &unit.Name, &weekdays, &unit.CreatedAt, &unit.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描科室数据失败: %w", err)
	}
	unit.ClinicWeekdays = toIntSlice(weekdays)

	return unit, nil
}

// Update 更新科室
func (r *UnitRepository) Update(ctx context.Context, unit *model.Unit) error {
	unit.UpdatedAt = time.Now()

	query := `
		UPDATE units SET name = $2, clinic_weekdays = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		unit.ID, unit.Name, toInt64Array(unit.ClinicWeekdays), unit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新科室失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("科室不存在")
	}

	return nil
}

// ListAll 获取所有科室
func (r *UnitRepository) ListAll(ctx context.Context) ([]*model.Unit, error) {
	query := `
		SELECT id, name, clinic_weekdays, created_at, updated_at
		FROM units
		WHERE deleted_at IS NULL
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询科室失败: %w", err)
	}
	defer rows.Close()

	var units []*model.Unit
	for rows.Next() {
		unit := &model.Unit{}
		var weekdays pq.Int64Array
		if err := rows.Scan(&unit.ID, &unit.Name, &weekdays, &unit.CreatedAt, &unit.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描科室数据失败: %w", err)
		}
		unit.ClinicWeekdays = toIntSlice(weekdays)
		units = append(units, unit)
	}

	return units, nil
}

// PostRepository 岗位仓储
type PostRepository struct {
	db DB
}

// NewPostRepository 创建岗位仓储
func NewPostRepository(db DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create 创建岗位
func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	query := `
		INSERT INTO posts (id, name, applicability, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		post.ID, post.Name, post.Applicability, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建岗位失败: %w", err)
	}

	return nil
}

// ListAll 获取所有岗位
func (r *PostRepository) ListAll(ctx context.Context) ([]*model.Post, error) {
	query := `
		SELECT id, name, applicability, created_at, updated_at
		FROM posts
		WHERE deleted_at IS NULL
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post := &model.Post{}
		if err := rows.Scan(&post.ID, &post.Name, &post.Applicability, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描岗位数据失败: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// toIntSlice pq.Int64Array转[]int
func toIntSlice(arr pq.Int64Array) []int {
	if len(arr) == 0 {
		return nil
	}
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out
}

// toInt64Array []int转pq.Int64Array
func toInt64Array(values []int) pq.Int64Array {
	out := make(pq.Int64Array, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}
