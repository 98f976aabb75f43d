package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sucursales/pkg/config"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Ledger.LockTimeout)
	assert.Equal(t, "read", cfg.Access.ManagerCrossBranch)
	assert.Equal(t, "write", cfg.Access.AdminCrossBranch)
	assert.Equal(t, "postgres://postgres:@localhost:5432/inventario_sucursales?sslmode=disable", cfg.DB.ConnectionString())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "MEMORY")
	v.Set("LEDGER_LOCK_TIMEOUT_MS", "250")
	v.Set("ACCESS_MANAGER_CROSS_BRANCH", "none")
	v.Set("DATABASE_URL", "postgres://u:p@db:5432/x")
	v.Set("MIGRATIONS_AUTO", true)

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.LockTimeout)
	assert.Equal(t, "none", cfg.Access.ManagerCrossBranch)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DB.ConnectionString())
	assert.True(t, cfg.Store.MigrationsAuto)
}

func TestFromViper_Invalid(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "sqlite")
	_, err := config.FromViper(v)
	require.Error(t, err)

	v = viper.New()
	v.Set("LEDGER_LOCK_TIMEOUT_MS", "0")
	_, err = config.FromViper(v)
	require.Error(t, err)
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "h", Port: 5432, User: "u", Password: "p@ss/word", DBName: "d", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p%40ss%2Fword@h:5432/d?sslmode=require", c.DSN())
}
