package d1driver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// Scheme is the URI scheme accepted by ParseDSN.
const Scheme = "d1"

// ParseDSN parses a data source name in either URI or key=value format and
// returns a Config with defaults applied to every omitted field.
//
// Supported formats:
//   - URI: d1://account:token@database?retries=2&retry_delay=100ms&timeout=10s&tx=counter
//   - Key/value: AccountID=acct;DatabaseID=db;Token=secret;Retries=2
//
// Bare integers are read as milliseconds for retry_delay and as seconds for
// timeout and connect_timeout.
func ParseDSN(dsn string) (d1sql.Config, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return d1sql.Config{}, fmt.Errorf("DSN is empty: %w", d1sql.ErrInvalidConfig)
	}

	if strings.HasPrefix(dsn, Scheme+"://") {
		return parseURI(dsn)
	}

	if strings.Contains(dsn, "=") {
		return parseKeyValue(dsn)
	}

	return d1sql.Config{}, fmt.Errorf("unrecognized DSN format: %w", d1sql.ErrInvalidConfig)
}

func parseURI(dsn string) (d1sql.Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return d1sql.Config{}, fmt.Errorf("invalid D1 URI: %w", d1sql.ErrInvalidConfig)
	}

	cfg := d1sql.DefaultConfig()
	cfg.DatabaseID = u.Host
	if u.User != nil {
		cfg.AccountID = u.User.Username()
		if token, ok := u.User.Password(); ok {
			cfg.Token = token
		}
	}
	if path := strings.Trim(u.Path, "/"); path != "" {
		return d1sql.Config{}, fmt.Errorf("unexpected path %q in D1 URI: %w", u.Path, d1sql.ErrInvalidConfig)
	}

	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		if err := applyParam(&cfg, key, values[0]); err != nil {
			return d1sql.Config{}, err
		}
	}
	return cfg, nil
}

func parseKeyValue(dsn string) (d1sql.Config, error) {
	cfg := d1sql.DefaultConfig()

	for _, part := range strings.Split(dsn, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return d1sql.Config{}, fmt.Errorf("malformed DSN segment %q: %w", part, d1sql.ErrInvalidConfig)
		}
		if err := applyParam(&cfg, strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])); err != nil {
			return d1sql.Config{}, err
		}
	}
	return cfg, nil
}

func applyParam(cfg *d1sql.Config, key, value string) error {
	var err error
	switch strings.ToLower(strings.ReplaceAll(key, "_", "")) {
	case "accountid", "account":
		cfg.AccountID = value
	case "databaseid", "database":
		cfg.DatabaseID = value
	case "token", "apitoken":
		cfg.Token = value
	case "api", "apiurl":
		cfg.APIURL = strings.TrimRight(value, "/")
	case "retries":
		cfg.Retries, err = strconv.Atoi(value)
	case "retrydelay":
		cfg.RetryDelay, err = parseDuration(value, time.Millisecond)
	case "timeout":
		cfg.Timeout, err = parseDuration(value, time.Second)
	case "connecttimeout":
		cfg.ConnectTimeout, err = parseDuration(value, time.Second)
	case "tx", "transactions":
		cfg.TxPolicy, err = d1sql.ParseTxPolicy(value)
		return err
	case "errmode":
		cfg.ErrMode, err = parseErrMode(value)
		return err
	default:
		return fmt.Errorf("unknown DSN parameter %q: %w", key, d1sql.ErrInvalidConfig)
	}
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, d1sql.ErrInvalidConfig)
	}
	return nil
}

// parseDuration accepts Go duration syntax or a bare integer counted in unit.
func parseDuration(value string, unit time.Duration) (time.Duration, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * unit, nil
	}
	return time.ParseDuration(value)
}

func parseErrMode(value string) (d1sql.ErrMode, error) {
	switch strings.ToLower(value) {
	case "", "exception":
		return d1sql.ErrModeException, nil
	case "silent":
		return d1sql.ErrModeSilent, nil
	default:
		return d1sql.ErrModeException, fmt.Errorf("unknown error mode %q: %w", value, d1sql.ErrInvalidConfig)
	}
}

// FormatDSN renders cfg as a URI accepted by ParseDSN. Fields equal to their
// default are omitted.
func FormatDSN(cfg d1sql.Config) string {
	u := &url.URL{
		Scheme: Scheme,
		Host:   cfg.DatabaseID,
	}
	if cfg.AccountID != "" || cfg.Token != "" {
		if cfg.Token != "" {
			u.User = url.UserPassword(cfg.AccountID, cfg.Token)
		} else {
			u.User = url.User(cfg.AccountID)
		}
	}

	defaults := d1sql.DefaultConfig()
	query := url.Values{}
	if cfg.APIURL != "" && cfg.APIURL != defaults.APIURL {
		query.Set("api", cfg.APIURL)
	}
	if cfg.Retries != defaults.Retries {
		query.Set("retries", strconv.Itoa(cfg.Retries))
	}
	if cfg.RetryDelay != defaults.RetryDelay {
		query.Set("retry_delay", cfg.RetryDelay.String())
	}
	if cfg.Timeout != defaults.Timeout {
		query.Set("timeout", cfg.Timeout.String())
	}
	if cfg.ConnectTimeout != defaults.ConnectTimeout {
		query.Set("connect_timeout", cfg.ConnectTimeout.String())
	}
	if cfg.TxPolicy != d1sql.TxPolicyReject {
		query.Set("tx", cfg.TxPolicy.String())
	}
	if cfg.ErrMode != d1sql.ErrModeException {
		query.Set("errmode", cfg.ErrMode.String())
	}

	u.RawQuery = query.Encode()
	return u.String()
}
