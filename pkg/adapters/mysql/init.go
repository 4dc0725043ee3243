package mysql

import (
	"log/slog"

	"github.com/leapstack-labs/leapseed/pkg/adapter"

	_ "github.com/leapstack-labs/leapseed/pkg/dialects/mysql"
)

func init() {
	adapter.Register("mysql", func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "mariadb")
}
