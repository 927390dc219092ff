package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "siteflowctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"migrate", "create-org", "sweep-share-links", "cleanup-logs"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestCreateOrgFlags(t *testing.T) {
	cmd := NewRootCommand()
	createCmd, _, err := cmd.Find([]string{"create-org"})
	require.NoError(t, err)

	for _, name := range []string{"name", "slug", "admin-email", "admin-password"} {
		flag := createCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"], name)
	}
	assert.Equal(t, "Administrator", createCmd.Flags().Lookup("admin-name").DefValue)
}

// writeConfig points a config file at a fresh SQLite database in a temp dir.
func writeConfig(t *testing.T) (configPath, dsn string) {
	t.Helper()
	dir := t.TempDir()
	dsn = filepath.Join(dir, "siteflow.db")
	cfg := config.DefaultConfig()
	cfg.Database.DSN = dsn
	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(configPath))
	return configPath, dsn
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateAndCreateOrg(t *testing.T) {
	configPath, dsn := writeConfig(t)

	out, err := execute(t, "--config", configPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema migrated")

	out, err = execute(t, "--config", configPath, "create-org",
		"--name", "Acme Builders", "--slug", "acme",
		"--admin-email", "Boss@Acme.test", "--admin-password", "s3cret-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "organization acme")

	db, err := models.InitDB(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer models.CloseDB(db)

	var admin models.User
	require.NoError(t, db.First(&admin, "email = ?", "boss@acme.test").Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NotEqual(t, "s3cret-pass", admin.Password)

	_, err = execute(t, "--config", configPath, "create-org",
		"--name", "Impostor", "--slug", "acme",
		"--admin-email", "other@acme.test", "--admin-password", "s3cret-pass")
	assert.Error(t, err, "a taken slug must be rejected")
}

func TestCreateOrgRequiresFlags(t *testing.T) {
	configPath, _ := writeConfig(t)
	_, err := execute(t, "--config", configPath, "create-org", "--name", "Acme")
	assert.Error(t, err)
}

func TestMaintenanceCommands(t *testing.T) {
	configPath, _ := writeConfig(t)
	_, err := execute(t, "--config", configPath, "migrate")
	require.NoError(t, err)

	out, err := execute(t, "--config", configPath, "sweep-share-links", "--older-than-days", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked 0 share link(s) expired more than 7 day(s) ago")

	out, err = execute(t, "--config", configPath, "cleanup-logs")
	require.NoError(t, err)
	assert.Contains(t, out, "older than 30 day(s)")
}
