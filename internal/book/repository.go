package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prudentia/internal/basel"
	"prudentia/internal/store"
)

// ErrNotFound 表示组合不存在。
var ErrNotFound = errors.New("book: 组合不存在")

// Entry 为组合簿中保存的一个命名组合。
type Entry struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Portfolio basel.Portfolio `json:"portfolio"`
	CreatedAt time.Time       `json:"created_at"`
}

// Summary 为组合列表中的摘要信息。
type Summary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LoanCount     int       `json:"loan_count"`
	TotalExposure float64   `json:"total_exposure"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository 负责在 SQLite 中持久化贷款组合。
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewRepository 创建组合簿并初始化表结构。
func NewRepository(store *store.Store, logger *zap.Logger) (*Repository, error) {
	if store == nil {
		return nil, errors.New("book: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Repository{
		db:     store.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := r.initSchema(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Repository) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS portfolios (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS portfolio_loans (
			portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			loan_id TEXT NOT NULL,
			pd REAL NOT NULL,
			lgd REAL NOT NULL,
			ead REAL NOT NULL,
			maturity REAL NOT NULL,
			exposure_type TEXT NOT NULL,
			turnover REAL,
			PRIMARY KEY (portfolio_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_portfolios_created ON portfolios(created_at);`,
	}

	for _, stmt := range schema {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("book: 初始化表结构失败: %w", err)
		}
	}

	return nil
}

// Save 校验并保存组合，返回新生成的 ID。
func (r *Repository) Save(ctx context.Context, name string, portfolio basel.Portfolio) (Entry, error) {
	if err := portfolio.Validate(); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Name:      name,
		Portfolio: basel.NewPortfolio(portfolio.Loans),
		CreatedAt: r.now().Truncate(time.Second),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("book: 开启事务失败: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO portfolios (id, name, created_at) VALUES (?, ?, ?)`,
		entry.ID, entry.Name, entry.CreatedAt.Format(time.RFC3339),
	); err != nil {
		err = fmt.Errorf("book: 写入组合失败: %w", err)
		return Entry{}, err
	}

	for i, loan := range entry.Portfolio.Loans {
		var turnover sql.NullFloat64
		if loan.Turnover != nil {
			turnover = sql.NullFloat64{Float64: *loan.Turnover, Valid: true}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO portfolio_loans (portfolio_id, position, loan_id, pd, lgd, ead, maturity, exposure_type, turnover)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, i, loan.ID, loan.PD, loan.LGD, loan.EAD, loan.Maturity, string(loan.ExposureType), turnover,
		); err != nil {
			err = fmt.Errorf("book: 写入贷款 %q 失败: %w", loan.ID, err)
			return Entry{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("book: 提交事务失败: %w", err)
		return Entry{}, err
	}

	r.logger.Info("组合已保存",
		zap.String("portfolio_id", entry.ID),
		zap.String("name", entry.Name),
		zap.Int("loans", entry.Portfolio.Len()),
	)
	return entry, nil
}

// Get 按 ID 读取组合，贷款顺序与保存时一致。
func (r *Repository) Get(ctx context.Context, id string) (Entry, error) {
	var (
		entry   Entry
		created string
	)

	row := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM portfolios WHERE id = ?`, id)
	if err := row.Scan(&entry.ID, &entry.Name, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Entry{}, fmt.Errorf("book: 查询组合失败: %w", err)
	}
	entry.CreatedAt = parseTime(created)

	rows, err := r.db.QueryContext(ctx,
		`SELECT loan_id, pd, lgd, ead, maturity, exposure_type, turnover
		 FROM portfolio_loans WHERE portfolio_id = ? ORDER BY position`, id)
	if err != nil {
		return Entry{}, fmt.Errorf("book: 查询贷款失败: %w", err)
	}
	defer rows.Close()

	loans := make([]basel.Loan, 0)
	for rows.Next() {
		var (
			loan     basel.Loan
			typ      string
			turnover sql.NullFloat64
		)
		if err := rows.Scan(&loan.ID, &loan.PD, &loan.LGD, &loan.EAD, &loan.Maturity, &typ, &turnover); err != nil {
			return Entry{}, fmt.Errorf("book: 解析贷款失败: %w", err)
		}
		loan.ExposureType = basel.ExposureType(typ)
		if turnover.Valid {
			v := turnover.Float64
			loan.Turnover = &v
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, fmt.Errorf("book: 读取贷款失败: %w", err)
	}

	entry.Portfolio = basel.Portfolio{Loans: loans}
	return entry, nil
}

// List 按创建时间倒序列出组合摘要。
func (r *Repository) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.created_at, COUNT(l.position), COALESCE(SUM(l.ead), 0)
		FROM portfolios p
		LEFT JOIN portfolio_loans l ON l.portfolio_id = p.id
		GROUP BY p.id, p.name, p.created_at
		ORDER BY p.created_at DESC, p.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("book: 查询组合列表失败: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, limit)
	for rows.Next() {
		var (
			s       Summary
			created string
		)
		if err := rows.Scan(&s.ID, &s.Name, &created, &s.LoanCount, &s.TotalExposure); err != nil {
			return nil, fmt.Errorf("book: 解析组合摘要失败: %w", err)
		}
		s.CreatedAt = parseTime(created)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("book: 读取组合列表失败: %w", err)
	}

	return out, nil
}

// Delete 删除组合及其贷款。
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("book: 删除组合失败: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("book: 读取删除结果失败: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
