package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSNValue returns the explicit DSN or URL when set, otherwise a MySQL DSN
// assembled from the individual fields.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := firstNonEmpty(c.DSN, c.URL); v != "" {
		return v
	}

	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(firstNonEmpty(c.Host, defaultDBHost), strconv.Itoa(port))
	mc.User = firstNonEmpty(c.User, c.Username, defaultDBUser)
	mc.Passwd = firstNonEmpty(c.Password, defaultDBPassword)
	mc.DBName = firstNonEmpty(c.Name, c.DBName, defaultDBName)
	mc.ParseTime = c.ParseTime
	mc.Params = map[string]string{"charset": firstNonEmpty(c.Charset, defaultDBCharset)}

	locName := firstNonEmpty(c.Loc, defaultDBLoc)
	for key, value := range c.Params {
		k, v := strings.TrimSpace(key), strings.TrimSpace(value)
		if k == "" || v == "" {
			continue
		}
		switch k {
		case "parseTime":
			if b, err := strconv.ParseBool(v); err == nil {
				mc.ParseTime = b
			}
		case "loc":
			locName = v
		default:
			mc.Params[k] = v
		}
	}
	if loc, err := time.LoadLocation(locName); err == nil {
		mc.Loc = loc
	}
	return mc.FormatDSN()
}

// URLValue returns the explicit Redis URL when set, otherwise one built
// from host, port, db and credentials.
func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}

	u := &neturl.URL{
		Scheme: redisScheme(c.Scheme, c.TLS),
		Host:   net.JoinHostPort(firstNonEmpty(c.Host, defaultRedisHost), strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	if user, pass := strings.TrimSpace(c.Username), strings.TrimSpace(c.Password); pass != "" {
		u.User = neturl.UserPassword(user, pass)
	} else if user != "" {
		u.User = neturl.User(user)
	}

	query := neturl.Values{}
	for key, value := range c.Params {
		if k, v := strings.TrimSpace(key), strings.TrimSpace(value); k != "" && v != "" {
			query.Set(k, v)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func redisScheme(raw string, tls bool) string {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "redis", "rediss":
		return s
	}
	if tls {
		return "rediss"
	}
	return "redis"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ValidateDSN rejects DSNs the MySQL driver would refuse at connect time.
func ValidateDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return fmt.Errorf("invalid database dsn: %w", err)
	}
	return nil
}
