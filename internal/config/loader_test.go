package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/epochboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"EPOCHBOARD_CONFIG",
	"EPOCHBOARD_ADDR",
	"EPOCHBOARD_STORE_DRIVER",
	"EPOCHBOARD_POSTGRES_DSN",
	"EPOCHBOARD_RETENTION_DAILY",
	"EPOCHBOARD_REAP_WORKERS",
	"EPOCHBOARD_LONG_IDLE_WARN_PERIODS",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "epochboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.RetentionDaily, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("EPOCHBOARD_ADDR", ":8080")
			_ = os.Setenv("EPOCHBOARD_RETENTION_DAILY", "3")
			_ = os.Setenv("EPOCHBOARD_REAP_WORKERS", "6")
			_ = os.Setenv("EPOCHBOARD_LONG_IDLE_WARN_PERIODS", "30")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RetentionDaily, convey.ShouldEqual, 3)
				convey.So(cfg.ReapWorkers, convey.ShouldEqual, 6)
				convey.So(cfg.LongIdleWarnPeriods, convey.ShouldEqual, 30)
				convey.So(cfg.RetentionWeekly, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeConfigFile(t, `
addr: ":9090"
store_driver: postgres
postgres_dsn: postgres://db/epochboard
retention_daily: 14
reap_workers: 4
`)
			_ = os.Setenv("EPOCHBOARD_CONFIG", path)
			_ = os.Setenv("EPOCHBOARD_REAP_WORKERS", "8")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the file overrides defaults and env overrides the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverPostgres)
				convey.So(cfg.PostgresDSN, convey.ShouldEqual, "postgres://db/epochboard")
				convey.So(cfg.RetentionDaily, convey.ShouldEqual, 14)
				convey.So(cfg.ReapWorkers, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("EPOCHBOARD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the result is invalid", func() {
			_ = os.Setenv("EPOCHBOARD_STORE_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
