// Package mysql provides the MySQL SQL dialect definition.
package mysql

import (
	"strings"

	"github.com/leapstack-labs/leapseed/pkg/dialect"
)

func init() {
	dialect.Register(MySQL)
}

// MySQL is the MySQL dialect. Arrays and JSON are stored as JSON text and
// AUTO_INCREMENT tracks inserted ids, so no fixer is emitted.
var MySQL = dialect.NewDialect("mysql").
	Identifiers("`", "`", "``").
	StringQuoter(quoteString).
	Booleans("1", "0").
	EmptyInsert("() VALUES ()").
	TimestampLayout("2006-01-02 15:04:05.999999").
	Build()

// quoteString escapes backslashes as well as quotes, since MySQL treats
// backslash as an escape character inside string literals by default.
func quoteString(s string) string {
	if !strings.ContainsAny(s, `'\`+"\x00\n\r\x1a") {
		return "'" + s + "'"
	}
	r := strings.NewReplacer(
		`\`, `\\`,
		"'", "''",
		"\x00", `\0`,
		"\n", `\n`,
		"\r", `\r`,
		"\x1a", `\Z`,
	)
	return "'" + r.Replace(s) + "'"
}
