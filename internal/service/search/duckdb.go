package search

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

const duckTable = "product_vectors"

// DuckDBStore 基于 DuckDB 列表函数的嵌入式向量索引
// 适合单机部署，path 为空时使用内存库
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore 打开 DuckDB 连接
func NewDuckDBStore(path string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	// 内存库每个连接是独立实例，限制为单连接
	db.SetMaxOpenConns(1)
	return &DuckDBStore{db: db}, nil
}

// Close 关闭连接
func (s *DuckDBStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// EnsureIndex 建表
func (s *DuckDBStore) EnsureIndex(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + duckTable + ` (
		product_id BIGINT PRIMARY KEY,
		name VARCHAR,
		category VARCHAR,
		brand VARCHAR,
		price DOUBLE,
		stock_quantity INTEGER,
		is_active BOOLEAN,
		embedding DOUBLE[]
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}
	return nil
}

// vectorLiteral 将向量格式化为 DuckDB 列表字面量
func vectorLiteral(vec []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// Upsert 按商品 ID 覆盖写入
func (s *DuckDBStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO `+duckTable+`
		(product_id, name, category, brand, price, stock_quantity, is_active, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, CAST(? AS DOUBLE[]))`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		m := r.Metadata
		if _, err := stmt.ExecContext(ctx, int64(r.ProductID), m.Name, m.Category, m.Brand,
			m.Price, m.StockQuantity, m.IsActive, vectorLiteral(r.Vector)); err != nil {
			return fmt.Errorf("upsert vector %d: %w", r.ProductID, err)
		}
	}
	return tx.Commit()
}

// Delete 删除向量，不存在时忽略
func (s *DuckDBStore) Delete(ctx context.Context, productID uint) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+duckTable+` WHERE product_id = ?`, int64(productID)); err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	return nil
}

// Query 余弦相似度排序，同分按商品 ID 升序
func (s *DuckDBStore) Query(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	where := []string{"1 = 1"}
	args := []any{vectorLiteral(vector)}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	args = append(args, topK)

	query := `SELECT product_id, COALESCE(list_cosine_similarity(embedding, CAST(? AS DOUBLE[])), 0) AS score
		FROM ` + duckTable + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY score DESC, product_id ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		matches = append(matches, Match{ProductID: uint(id), Score: score})
	}
	return matches, rows.Err()
}
