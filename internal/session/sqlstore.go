package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/deskctl/internal/db"
)

const createTable = `create table if not exists sessions (
	id          varchar(64) primary key,
	user_login  varchar(200) not null,
	user_type   varchar(16) not null,
	created_at  bigint not null,
	last_access bigint not null
)`

// SQLStore keeps sessions in the system database. Timestamps are unix seconds.
type SQLStore struct {
	db   *db.DB
	now  func() time.Time
	once sync.Once
	err  error
}

func NewSQLStore(handle *db.DB) *SQLStore {
	return &SQLStore{db: handle, now: time.Now}
}

func (s *SQLStore) ensure(ctx context.Context) error {
	s.once.Do(func() {
		if _, err := s.db.ExecContext(ctx, createTable); err != nil {
			s.err = fmt.Errorf("create sessions table: %w", err)
		}
	})
	return s.err
}

func (s *SQLStore) Create(ctx context.Context, in Session) (string, error) {
	if err := s.ensure(ctx); err != nil {
		return "", err
	}
	in, err := prepare(in, s.now())
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		s.db.Rebind(`insert into sessions (id, user_login, user_type, created_at, last_access) values (?, ?, ?, ?, ?)`),
		in.ID, in.UserLogin, in.UserType, in.CreatedAt.Unix(), in.LastAccess.Unix())
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return in.ID, nil
}

func (s *SQLStore) Touch(ctx context.Context, id string, at time.Time) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`update sessions set last_access = ? where id = ?`), at.Unix(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return requireRow(res.RowsAffected())
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`delete from sessions where id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireRow(res.RowsAffected())
}

func (s *SQLStore) Active(ctx context.Context, userType string, idle time.Duration) (int, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	var cutoff int64
	if idle > 0 {
		cutoff = s.now().Add(-idle).Unix()
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`select count(*) from sessions where user_type = ? and last_access >= ?`),
		userType, cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func requireRow(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
