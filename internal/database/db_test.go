package database

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestBuildDSN(t *testing.T) {
	got := buildDSN("auction", "s3cret", "db.local", "3306", "auctions")
	check.Equal(t,
		"auction:s3cret@tcp(db.local:3306)/auctions?charset=utf8mb4&parseTime=true&loc=UTC",
		got)
}

func TestBuildDSNWithoutPassword(t *testing.T) {
	got := buildDSN("auction", "", "localhost", "3306", "auctions")
	check.Equal(t,
		"auction@tcp(localhost:3306)/auctions?charset=utf8mb4&parseTime=true&loc=UTC",
		got)
}

func TestPoolSettingsFallBackOnBadInput(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	check.Equal(t, 25, poolInt("DB_MAX_OPEN_CONNS", 25))

	t.Setenv("DB_MAX_OPEN_CONNS", "40")
	check.Equal(t, 40, poolInt("DB_MAX_OPEN_CONNS", 25))

	t.Setenv("DB_CONN_MAX_LIFETIME", "-5m")
	check.Equal(t, 30*time.Minute, poolDur("DB_CONN_MAX_LIFETIME", 30*time.Minute))

	t.Setenv("DB_CONN_MAX_LIFETIME", "10m")
	check.Equal(t, 10*time.Minute, poolDur("DB_CONN_MAX_LIFETIME", 30*time.Minute))
}
