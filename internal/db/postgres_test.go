package db

import (
	"os"
	"testing"
)

func TestOpenRejectsBadDSN(t *testing.T) {
	cases := []struct {
		name string
		dsn  string
	}{
		{"not a url", "not-a-dsn"},
		{"no scheme", "://localhost/equiplink"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			conn, err := Open(c.dsn)
			if err == nil {
				conn.Close()
				t.Fatalf("Open(%q) succeeded, want error", c.dsn)
			}
			if conn != nil {
				t.Error("Open should return a nil handle on error")
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	conn, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	var one int
	if err := conn.QueryRow("SELECT 1").Scan(&one); err != nil {
		t.Fatalf("SELECT 1: %v", err)
	}
	if one != 1 {
		t.Errorf("SELECT 1 = %d", one)
	}
}
