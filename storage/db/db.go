// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores parsed benchmark runs in a SQL database so
// sweeps recorded on different days can be summarized and plotted
// again later.
package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/net/context"

	"github.com/hpxcv/mandelbench/benchlog"
)

// DB is a high-level interface to a database of benchmark runs.
// It's safe for concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertUpload *sql.Stmt
	insertRecord *sql.Stmt
	insertValue  *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Uploads (
	UploadID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Sweep VARCHAR(32) NOT NULL,
	Source VARCHAR(1024) NOT NULL,
	Created VARCHAR(64) NOT NULL
);
CREATE TABLE IF NOT EXISTS Records (
	UploadID BIGINT UNSIGNED,
	RecordID BIGINT UNSIGNED,
	Backend VARCHAR(255) NOT NULL,
	SweepKey BIGINT NOT NULL,
	Content BLOB,
	PRIMARY KEY (UploadID, RecordID),
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS RecordValues (
	UploadID BIGINT UNSIGNED,
	RecordID BIGINT UNSIGNED,
	Metric VARCHAR(32),
	Value DOUBLE,
{{if not .sqlite3}}
	Index (Metric),
{{end}}
	PRIMARY KEY (UploadID, RecordID, Metric),
	FOREIGN KEY (UploadID, RecordID) REFERENCES Records(UploadID, RecordID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS RecordValuesMetric ON RecordValues(Metric);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.insertUpload, err = db.sql.Prepare("INSERT INTO Uploads(Sweep, Source, Created) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertRecord, err = db.sql.Prepare("INSERT INTO Records(UploadID, RecordID, Backend, SweepKey, Content) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertValue, err = db.sql.Prepare("INSERT INTO RecordValues(UploadID, RecordID, Metric, Value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// now is a hook for testing
var now = time.Now

// An Upload is a set of benchmark runs of one sweep stored together.
type Upload struct {
	// ID is the primary key of this upload.
	ID int64

	// Sweep is the variable every record of this upload is keyed by.
	Sweep benchlog.Sweep

	// recordid is the index of the next record to insert.
	recordid int64
	// db is the underlying database that this upload is going to.
	db *DB
}

// NewUpload returns an upload for storing the runs of one sweep.
// source describes where the runs came from, such as the log
// directory.
func (db *DB) NewUpload(ctx context.Context, sweep benchlog.Sweep, source string) (*Upload, error) {
	if _, err := sweep.MarshalText(); err != nil {
		return nil, err
	}
	created := now().UTC().Format(time.RFC3339)
	res, err := db.insertUpload.ExecContext(ctx, sweep.String(), source, created)
	if err != nil {
		return nil, err
	}
	i, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Upload{
		ID:    i,
		Sweep: sweep,
		db:    db,
	}, nil
}

// InsertRecord inserts a single run in an existing upload. The run is
// stored in log format along with one row per recorded metric.
func (u *Upload) InsertRecord(ctx context.Context, r *benchlog.Result) (err error) {
	key, err := r.Key(u.Sweep)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := benchlog.NewWriter(&buf).Write(r); err != nil {
		return err
	}

	tx, err := u.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = tx.StmtContext(ctx, u.db.insertRecord).ExecContext(ctx, u.ID, u.recordid, r.Backend, key, buf.Bytes()); err != nil {
		return err
	}
	insertValue := tx.StmtContext(ctx, u.db.insertValue)
	for _, m := range benchlog.Metrics {
		v, ok := r.Value(m)
		if !ok {
			continue
		}
		if _, err = insertValue.ExecContext(ctx, u.ID, u.recordid, m.String(), v); err != nil {
			return err
		}
	}
	u.recordid++
	return nil
}

// UploadInfo describes a stored upload.
type UploadInfo struct {
	ID      int64
	Sweep   benchlog.Sweep
	Source  string
	Created time.Time
	Records int
}

// Uploads returns every stored upload, oldest first.
func (db *DB) Uploads(ctx context.Context) ([]UploadInfo, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT u.UploadID, u.Sweep, u.Source, u.Created, COUNT(r.RecordID)
FROM Uploads u LEFT JOIN Records r ON u.UploadID = r.UploadID
GROUP BY u.UploadID, u.Sweep, u.Source, u.Created
ORDER BY u.UploadID`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []UploadInfo
	for rows.Next() {
		var info UploadInfo
		var sweep, created string
		if err := rows.Scan(&info.ID, &sweep, &info.Source, &created, &info.Records); err != nil {
			return nil, err
		}
		if info.Sweep, err = benchlog.ParseSweep(sweep); err != nil {
			return nil, fmt.Errorf("upload %d: %w", info.ID, err)
		}
		if info.Created, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("upload %d: %w", info.ID, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Upload returns the description of upload id.
func (db *DB) Upload(ctx context.Context, id int64) (UploadInfo, error) {
	infos, err := db.Uploads(ctx)
	if err != nil {
		return UploadInfo{}, err
	}
	for _, info := range infos {
		if info.ID == id {
			return info, nil
		}
	}
	return UploadInfo{}, fmt.Errorf("upload %d: %w", id, sql.ErrNoRows)
}

// Records returns the runs stored in upload id, in insertion order.
func (db *DB) Records(ctx context.Context, id int64) ([]*benchlog.Result, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT RecordID, Content FROM Records WHERE UploadID = ? ORDER BY RecordID", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*benchlog.Result
	r := benchlog.NewReader(nil, "", benchlog.FormatAuto)
	for rows.Next() {
		var recordid int64
		var content []byte
		if err := rows.Scan(&recordid, &content); err != nil {
			return nil, err
		}
		r.Reset(bytes.NewReader(content), fmt.Sprintf("upload/%d/record/%d", id, recordid))
		if !r.Scan() {
			if err := r.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("upload %d record %d: empty content", id, recordid)
		}
		switch rec := r.Result().(type) {
		case *benchlog.Result:
			results = append(results, rec.Clone())
		case *benchlog.SyntaxError:
			return nil, rec
		}
	}
	return results, rows.Err()
}

// An Average is the SQL-computed mean of one metric over all runs of
// a backend at one sweep key.
type Average struct {
	Backend string
	Key     int
	N       int
	Mean    float64
}

// Averages returns the mean of metric m per backend and sweep key in
// upload id, ordered by backend and key.
func (db *DB) Averages(ctx context.Context, id int64, m benchlog.Metric) ([]Average, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT r.Backend, r.SweepKey, COUNT(*), AVG(v.Value)
FROM Records r JOIN RecordValues v ON r.UploadID = v.UploadID AND r.RecordID = v.RecordID
WHERE r.UploadID = ? AND v.Metric = ?
GROUP BY r.Backend, r.SweepKey
ORDER BY r.Backend, r.SweepKey`, id, m.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var avgs []Average
	for rows.Next() {
		var a Average
		if err := rows.Scan(&a.Backend, &a.Key, &a.N, &a.Mean); err != nil {
			return nil, err
		}
		avgs = append(avgs, a)
	}
	return avgs, rows.Err()
}

// CountUploads returns the number of uploads in the database.
func (db *DB) CountUploads() (int, error) {
	var uploads int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Uploads").Scan(&uploads)
	return uploads, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertUpload, db.insertRecord, db.insertValue} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
