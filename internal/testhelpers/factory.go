package testhelpers

import (
	"fmt"
	"os"
	"sync/atomic"

	g "github.com/onsi/gomega"
	"gorm.io/gorm"

	"trustlens/internal/db"
	"trustlens/internal/models"
)

var memoryDBSeq atomic.Int64

// OpenTestDB connects to TEST_DATABASE_URL when it is set and otherwise to a
// fresh in-memory sqlite database. The schema is always ensured.
func OpenTestDB() (*gorm.DB, error) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf("sqlite://file:trustlens_test_%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	}

	conn, err := db.InitDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// CleanupDB empties every application table.
func CleanupDB(conn *gorm.DB) {
	if !db.IsSQLite(conn) {
		cleanupPostgres(conn)
		return
	}

	for _, model := range models.All() {
		err := conn.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error
		g.Expect(err).NotTo(g.HaveOccurred(), fmt.Sprintf("Failed to clear %T", model))
	}
}

func cleanupPostgres(conn *gorm.DB) {
	var tables []string

	err := conn.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error
	g.Expect(err).NotTo(g.HaveOccurred())

	for _, table := range tables {
		if table == "spatial_ref_sys" || table == "schema_migrations" {
			continue
		}

		query := fmt.Sprintf("TRUNCATE TABLE \"%s\" RESTART IDENTITY CASCADE", table)
		err := conn.Exec(query).Error
		g.Expect(err).NotTo(g.HaveOccurred(), "Failed to truncate table: "+table)
	}
}
