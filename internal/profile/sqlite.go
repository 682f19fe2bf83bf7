package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	key TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteBackend는 여러 셸 프로세스가 공유하는 단일 SQLite 파일에 항목을 둔다.
// 키마다 한 행이고, 교체는 단일 INSERT OR REPLACE 문이므로 원자적이다.
// payload는 zstd로 압축된다.
type SQLiteBackend struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite는 path의 데이터베이스를 열거나 생성한다.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("profile.OpenSQLite: %w", err)
	}

	// 연결마다 적용되어야 하므로 pragma는 DSN으로 전달한다.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("profile.OpenSQLite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("profile.OpenSQLite: 스키마 적용 실패: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("profile.OpenSQLite: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("profile.OpenSQLite: %w", err)
	}
	return &SQLiteBackend{db: db, enc: enc, dec: dec}, nil
}

// Get은 키의 항목을 읽어 압축을 해제한다.
func (b *SQLiteBackend) Get(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, fmt.Errorf("profile.SQLiteBackend.Get: %w", err)
	}
	var payload []byte
	err := b.db.QueryRow("SELECT payload FROM profiles WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile.SQLiteBackend.Get: %w", err)
	}
	data, err := b.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("profile.SQLiteBackend.Get: %w: %v", ErrCorrupt, err)
	}
	return data, nil
}

// Put은 키의 행을 교체한다.
func (b *SQLiteBackend) Put(key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return fmt.Errorf("profile.SQLiteBackend.Put: %w", err)
	}
	payload := b.enc.EncodeAll(data, nil)
	_, err := b.db.Exec(
		`INSERT OR REPLACE INTO profiles (key, payload, updated_at) VALUES (?, ?, ?)`,
		key, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("profile.SQLiteBackend.Put: %w", err)
	}
	return nil
}

// Delete는 키의 행을 제거한다.
func (b *SQLiteBackend) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return fmt.Errorf("profile.SQLiteBackend.Delete: %w", err)
	}
	if _, err := b.db.Exec("DELETE FROM profiles WHERE key = ?", key); err != nil {
		return fmt.Errorf("profile.SQLiteBackend.Delete: %w", err)
	}
	return nil
}

// List는 저장된 키를 정렬하여 반환한다.
func (b *SQLiteBackend) List() ([]string, error) {
	rows, err := b.db.Query("SELECT key FROM profiles ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("profile.SQLiteBackend.List: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("profile.SQLiteBackend.List: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close는 데이터베이스와 압축기를 닫는다.
func (b *SQLiteBackend) Close() error {
	b.dec.Close()
	if err := b.enc.Close(); err != nil {
		b.db.Close()
		return err
	}
	return b.db.Close()
}
