package docstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
)

// PostgresStore 把文档存在 documents 表中，
// version 列承担乐观并发控制，token 就是十进制的 version
type PostgresStore struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewPostgresStore(cfg *config.Config, dbpool *sql.DB) *PostgresStore {
	return &PostgresStore{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func (s *PostgresStore) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
}

func (s *PostgresStore) Read(ctx context.Context, name string) (*Document, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT content, version FROM documents WHERE name = $1
	`

	var content []byte
	var version int32
	if err := s.dbpool.QueryRowContext(ctx, query, name).Scan(&content, &version); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &Document{Content: content, Token: strconv.FormatInt(int64(version), 10)}, nil
}

func (s *PostgresStore) Write(ctx context.Context, name string, content []byte, token string) (string, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if token == "" {
		// 首次创建路径，文档已经存在时视为冲突
		query := `
			INSERT INTO documents (name, content)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
			RETURNING version
		`
		var version int32
		if err := s.dbpool.QueryRowContext(ctx, query, name, content).Scan(&version); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return "", ErrConflict
			default:
				return "", err
			}
		}
		return strconv.FormatInt(int64(version), 10), nil
	}

	held, err := strconv.ParseInt(token, 10, 32)
	if err != nil {
		return "", errors.New("无效的版本 token")
	}

	query := `
		UPDATE documents
		SET content = $1, version = version + 1
		WHERE name = $2 AND version = $3
		RETURNING version
	`

	var version int32
	if err := s.dbpool.QueryRowContext(ctx, query, content, name, int32(held)).Scan(&version); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}

		// 分辨是 token 过期还是文档不存在
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM documents WHERE name = $1)`
		if err := s.dbpool.QueryRowContext(ctx, check, name).Scan(&exists); err != nil {
			return "", err
		}
		if exists {
			return "", ErrConflict
		}
		return "", ErrNotFound
	}

	return strconv.FormatInt(int64(version), 10), nil
}
