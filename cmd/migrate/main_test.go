package main

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/wolfman30/bizsite-ai-platform/migrations"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    command
		wantErr bool
	}{
		{"default up", nil, command{name: "up"}, false},
		{"up", []string{"up"}, command{name: "up"}, false},
		{"down", []string{"down"}, command{name: "down"}, false},
		{"version", []string{"version"}, command{name: "version"}, false},
		{"force", []string{"force", "2"}, command{name: "force", version: 2}, false},
		{"force nil version", []string{"force", "-1"}, command{name: "force", version: -1}, false},
		{"force without version", []string{"force"}, command{}, true},
		{"force bad version", []string{"force", "dos"}, command{}, true},
		{"down with extra", []string{"down", "3"}, command{}, true},
		{"unknown", []string{"drop"}, command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunRequiresDatabaseURL(t *testing.T) {
	err := run(command{name: "up"}, "", logging.New("error"))
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(appmigrations.FS, "*.sql")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		}
	}
	assert.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
	assert.True(t, ups["000002_create_security_audit_events"])
}
