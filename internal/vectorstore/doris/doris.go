// Package doris stores chunk embeddings in Apache Doris. DDL, search and deletes go
// over the MySQL protocol; writes use the Stream Load HTTP API.
package doris

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
	"doris-rag/internal/logging"
)

// DefaultLoadBatch is the maximum number of rows sent in one Stream Load request.
const DefaultLoadBatch = 5000

// Config configures the Doris store.
type Config struct {
	Host      string
	QueryPort int
	HTTPPort  int
	Database  string
	Table     string
	User      string
	Password  string
	Dimension int
	Metric    config.Metric
	Timeout   time.Duration
	LoadBatch int
}

// FromConfig maps the application config onto a store Config.
func FromConfig(c config.DorisConfig, dimension int, timeout time.Duration) Config {
	return Config{
		Host:      c.Host,
		QueryPort: c.QueryPort,
		HTTPPort:  c.HTTPPort,
		Database:  c.DBName,
		Table:     c.TableName,
		User:      c.User,
		Password:  c.Password,
		Dimension: dimension,
		Metric:    c.Metric,
		Timeout:   timeout,
	}
}

// Storage is the Doris implementation of the vector store port.
type Storage struct {
	cfg    Config
	db     *sql.DB
	http   *http.Client
	loader string
	logger *zap.Logger
}

// DSN returns the MySQL-protocol DSN for the frontend query port. No database is
// selected so Init can create it.
func DSN(cfg Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.QueryPort))
	mc.InterpolateParams = true
	mc.ParseTime = true
	if cfg.Timeout > 0 {
		mc.Timeout = cfg.Timeout
		mc.ReadTimeout = cfg.Timeout
		mc.WriteTimeout = cfg.Timeout
	}
	return mc.FormatDSN()
}

// Open connects to the Doris frontend.
func Open(cfg Config, logger *zap.Logger) (*Storage, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening doris connection: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(cfg, db, nil, logger), nil
}

// New builds a Storage over an existing connection pool. A nil client gets one
// that re-sends credentials across the frontend-to-backend redirect.
func New(cfg Config, db *sql.DB, client *http.Client, logger *zap.Logger) *Storage {
	if cfg.Metric == "" {
		cfg.Metric = config.MetricInnerProduct
	}
	if cfg.LoadBatch <= 0 {
		cfg.LoadBatch = DefaultLoadBatch
	}
	s := &Storage{
		cfg:    cfg,
		db:     db,
		loader: fmt.Sprintf("http://%s/api/%s/%s/_stream_load", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.HTTPPort)), cfg.Database, cfg.Table),
		logger: logging.OrNop(logger).Named("doris"),
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return fmt.Errorf("stream load: too many redirects")
		}
		req.SetBasicAuth(cfg.User, cfg.Password)
		return nil
	}
	s.http = client
	return s
}

func (s *Storage) table() string {
	return quoteIdent(s.cfg.Database) + "." + quoteIdent(s.cfg.Table)
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Init creates the database and table when missing. An existing table is opened as is.
func (s *Storage) Init(ctx context.Context) error {
	if s.cfg.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", s.cfg.Dimension)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(s.cfg.Database)); err != nil {
		return fmt.Errorf("creating database %s: %w", s.cfg.Database, err)
	}
	if _, err := s.db.ExecContext(ctx, s.createTableSQL()); err != nil {
		return fmt.Errorf("creating table %s: %w", s.cfg.Table, err)
	}
	s.logger.Debug("table ready", zap.String("table", s.cfg.Table), zap.Int("dimension", s.cfg.Dimension))
	return nil
}

// createTableSQL uses a merge-on-write unique key so re-loading a key replaces it.
func (s *Storage) createTableSQL() string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n"+
		"  `_key` VARCHAR(64) NOT NULL,\n"+
		"  `filename` VARCHAR(1024) NOT NULL,\n"+
		"  `sequence_id` INT NOT NULL,\n"+
		"  `location` VARCHAR(256),\n"+
		"  `text` STRING,\n"+
		"  `embedding` ARRAY<FLOAT> NOT NULL COMMENT 'dim=%d'\n"+
		") ENGINE=OLAP\n"+
		"UNIQUE KEY(`_key`)\n"+
		"DISTRIBUTED BY HASH(`_key`) BUCKETS 1\n"+
		"PROPERTIES (\"replication_num\" = \"1\", \"enable_unique_key_merge_on_write\" = \"true\")",
		s.table(), s.cfg.Dimension)
}

// Search runs an exact scan ordered by the configured metric.
func (s *Storage) Search(ctx context.Context, vector []float32, k int, filter *domain.Filter) ([]domain.RetrievalRecord, error) {
	if len(vector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: query has %d, table expects %d", domain.ErrDimensionMismatch, len(vector), s.cfg.Dimension)
	}
	if k <= 0 {
		k = domain.DefaultTopK
	}
	query, args := s.searchSQL(vector, k, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("doris search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RetrievalRecord, 0, k)
	for rows.Next() {
		var (
			rec      domain.RetrievalRecord
			text     sql.NullString
			location sql.NullString
		)
		if err := rows.Scan(&rec.ChunkID, &rec.Filename, &text, &location, &rec.Score); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		rec.Text = text.String
		rec.Location = domain.ParseLocation(location.String)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doris search: %w", err)
	}
	return out, nil
}

func (s *Storage) searchSQL(vector []float32, k int, filter *domain.Filter) (string, []any) {
	fn, order := "inner_product", "DESC"
	if s.cfg.Metric == config.MetricL2Distance {
		fn, order = "l2_distance", "ASC"
	}
	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT `_key`, `filename`, `text`, `location`, %s(`embedding`, %s) AS score FROM %s",
		fn, vectorLiteral(vector), s.table())
	if filter != nil && filter.Filename != "" {
		b.WriteString(" WHERE `filename` = ?")
		args = append(args, filter.Filename)
	}
	fmt.Fprintf(&b, " ORDER BY score %s LIMIT %d", order, k)
	return b.String(), args
}

func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// DeleteByFilename removes every chunk of a document.
func (s *Storage) DeleteByFilename(ctx context.Context, filename string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table()+" WHERE `filename` = ?", filename); err != nil {
		return fmt.Errorf("deleting chunks of %s: %w", filename, err)
	}
	return nil
}

// DeleteStale removes the chunks of filename numbered keep and above.
func (s *Storage) DeleteStale(ctx context.Context, filename string, keep int) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM "+s.table()+" WHERE `filename` = ? AND `sequence_id` >= ?", filename, keep); err != nil {
		return fmt.Errorf("deleting stale chunks of %s: %w", filename, err)
	}
	return nil
}

func (s *Storage) Close() error {
	s.http.CloseIdleConnections()
	return s.db.Close()
}

// row is the JSON shape sent to Stream Load.
type row struct {
	Key        string    `json:"_key"`
	Filename   string    `json:"filename"`
	SequenceID int       `json:"sequence_id"`
	Location   string    `json:"location"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
}

// Upsert loads chunks in batches of LoadBatch rows.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) != s.cfg.Dimension {
			return fmt.Errorf("%w: chunk %s has %d, table expects %d", domain.ErrDimensionMismatch, c.Key, len(c.Embedding), s.cfg.Dimension)
		}
	}
	for start := 0; start < len(chunks); start += s.cfg.LoadBatch {
		end := min(start+s.cfg.LoadBatch, len(chunks))
		rows := make([]row, 0, end-start)
		for _, c := range chunks[start:end] {
			loc, err := json.Marshal(c.Location.Value())
			if err != nil {
				return err
			}
			rows = append(rows, row{
				Key:        c.Key,
				Filename:   c.Filename,
				SequenceID: c.SequenceID,
				Location:   string(loc),
				Text:       c.Text,
				Embedding:  c.Embedding,
			})
		}
		if err := s.streamLoad(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
