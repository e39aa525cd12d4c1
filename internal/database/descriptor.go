package database

import (
	"strconv"
	"strings"
)

// Descriptor holds the parameters needed to reach a database. Every field is
// optional; an empty Database falls back to User.
type Descriptor struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// Resolved returns a copy with the database name defaulted to the user name.
func (d Descriptor) Resolved() Descriptor {
	if d.Database == "" {
		d.Database = d.User
	}
	return d
}

// ConnString renders the resolved descriptor as a keyword/value connection
// string. Absent fields are left out so the driver applies its own defaults.
func (d Descriptor) ConnString() string {
	r := d.Resolved()

	var parts []string
	add := func(key, val string) {
		if val != "" {
			parts = append(parts, key+"="+quoteConnValue(val))
		}
	}
	add("host", r.Host)
	if r.Port > 0 {
		parts = append(parts, "port="+strconv.Itoa(r.Port))
	}
	add("dbname", r.Database)
	add("user", r.User)
	add("password", r.Password)
	add("sslmode", r.SSLMode)

	return strings.Join(parts, " ")
}

// String is ConnString with the password masked, for logs and the status bar.
func (d Descriptor) String() string {
	if d.Password != "" {
		d.Password = "xxxxx"
	}
	return d.ConnString()
}

// quoteConnValue single-quotes a value, escaping backslashes and quotes as
// libpq expects.
func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
