package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"
)

type schemaType string

const (
	schemaTypeTable   schemaType = "table"
	schemaTypeTrigger schemaType = "trigger"
	schemaTypeIndex   schemaType = "index"
)

// schemaObject is an entry of sqlite_schema. liveSQL is empty when the object only exists in the target schema
// and targetSQL is empty when it only exists in the live schema.
type schemaObject struct {
	typ       schemaType
	name      string
	liveSQL   string
	targetSQL string
}

func (o schemaObject) added() bool   { return o.liveSQL == "" }
func (o schemaObject) removed() bool { return o.targetSQL == "" }

// changed ignores double quotes because renaming a table quotes its name in sqlite_schema.
func (o schemaObject) changed() bool {
	return strings.ReplaceAll(o.liveSQL, `"`, "") != strings.ReplaceAll(o.targetSQL, `"`, "")
}

// migrateTo makes the live schema match schemaDefinition.
//
// The target schema is created in an attached in-memory database and diffed against the live one. Tables are
// migrated first: removed tables are dropped, new ones created and changed ones rebuilt by copying the common
// columns into a fresh table (https://www.sqlite.org/lang_altertable.html#otheralter). Triggers and indexes are
// then dropped and recreated as needed.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachSchemaTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach schema target: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer db.restoreForeignKeys(ctx)

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer db.rollback(ctx, tx)

	changes := 0
	for _, typ := range []schemaType{schemaTypeTable, schemaTypeTrigger, schemaTypeIndex} {
		var objects []schemaObject
		if objects, err = db.diffSchema(ctx, tx, typ); err != nil {
			return fmt.Errorf("diff %s schema: %w", typ, err)
		}
		for _, o := range objects {
			if err = db.applySchemaChange(ctx, tx, o); err != nil {
				return fmt.Errorf("migrate %s %s: %w", o.typ, o.name, err)
			}
			changes++
		}
	}

	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database",
		slog.Int("changes", changes), slog.Duration("duration", time.Since(start)))
	return nil
}

// restoreForeignKeys turns foreign key enforcement back on. Running without it risks corrupting data, so a
// failure stops the process.
func (db *Database) restoreForeignKeys(ctx context.Context) {
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		err = fmt.Errorf("enable foreign keys: %w", err)
		db.logger.LogAttrs(ctx, slog.LevelError, "exit to avoid data corruption", slog.Any("error", err))
		if err = syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
			os.Exit(1)
		}
	}
}

// attachSchemaTarget attaches an in-memory database named schemaTarget that contains the target schema. The
// returned function detaches it.
func (db *Database) attachSchemaTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open schema target: %w", err)
	}
	// The shared cache keeps the in-memory database alive while it is attached to the live connection.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target",
				slog.Any("error", closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target",
				slog.Any("error", detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
			slog.Any("error", fmt.Errorf("rollback: %w", err)))
	}
}

// diffSchema returns the objects of typ that differ between the live and the target schema.
func (db *Database) diffSchema(ctx context.Context, tx *sql.Tx, typ schemaType) (_ []schemaObject, err error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT COALESCE(live.name, target.name), COALESCE(live.sql, ''), COALESCE(target.sql, '')
		FROM sqlite_schema AS live
			FULL OUTER JOIN schemaTarget.sqlite_schema AS target
				ON live.name = target.name AND live.type = target.type
		WHERE COALESCE(live.type, target.type) = ?
		  AND COALESCE(live.name, target.name) NOT LIKE 'sqlite_%'
		  AND COALESCE(live.name, target.name) NOT LIKE '_litestream_%'
		ORDER BY 1`, string(typ))
	if err != nil {
		return nil, fmt.Errorf("query schema: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var objects []schemaObject
	for rows.Next() {
		o := schemaObject{typ: typ, name: "", liveSQL: "", targetSQL: ""}
		if err = rows.Scan(&o.name, &o.liveSQL, &o.targetSQL); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		if o.changed() {
			objects = append(objects, o)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return objects, nil
}

func (db *Database) applySchemaChange(ctx context.Context, tx *sql.Tx, o schemaObject) error {
	logger := db.logger.With(slog.String("schemaType", string(o.typ)), slog.String("name", o.name))
	exec := func(msg, query string) error {
		logger.LogAttrs(ctx, slog.LevelInfo, msg, slog.String("query", query))
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return nil
	}
	dropSQL := fmt.Sprintf("DROP %s %s", strings.ToUpper(string(o.typ)), o.name)

	switch {
	case o.added():
		return exec("creating", o.targetSQL)
	case o.removed():
		return exec("dropping", dropSQL)
	case o.typ != schemaTypeTable:
		if err := exec("dropping changed", dropSQL); err != nil {
			return err
		}
		return exec("creating changed", o.targetSQL)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
		slog.String("live_sql", o.liveSQL), slog.String("new_sql", o.targetSQL))
	tempName := o.name + "_migration_temp"
	if err := exec("creating temporary table", strings.Replace(o.targetSQL, o.name, tempName, 1)); err != nil {
		return err
	}
	columns, err := db.commonColumns(ctx, tx, o.name)
	if err != nil {
		return fmt.Errorf("common columns: %w", err)
	}
	if len(columns) > 0 {
		list := strings.Join(columns, ", ")
		//nolint:gosec // identifiers come from sqlite_schema.
		if err = exec("copying rows", fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			tempName, list, list, o.name)); err != nil {
			return err
		}
	}
	if err = exec("dropping old table", "DROP TABLE "+o.name); err != nil {
		return err
	}
	return exec("renaming table", fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, o.name))
}

// commonColumns lists the quoted names of the columns that exist in both versions of table.
func (db *Database) commonColumns(ctx context.Context, tx *sql.Tx, table string) (_ []string, err error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT '"' || target.name || '"'
		FROM PRAGMA_TABLE_INFO(:table_name) AS live
			JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table_name", table))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return columns, nil
}
