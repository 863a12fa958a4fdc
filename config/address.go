package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/backend/consul"
	"github.com/mwantia/flatfs/backend/local"
	"github.com/mwantia/flatfs/backend/memory"
	"github.com/mwantia/flatfs/backend/postgres"
	"github.com/mwantia/flatfs/backend/s3"
	"github.com/mwantia/flatfs/backend/sqlite"
)

var (
	ErrMalformedBackendAddress       = errors.New("malformed backend address defined")
	ErrUnknownBackendProtocolAddress = errors.New("unknown backend protocol address")
)

// ParseBackendAddress creates the store described by address:
//
//	memory://
//	local://<directory>
//	sqlite://<file>              (sqlite://:memory: for an in-memory database)
//	postgres://<user>:<password>@<host>:<port>/<database>?<params>
//	s3://<access>:<secret>@<endpoint>/<bucket>[/<prefix>]?ssl=<bool>
//	consul://<host>:<port>[/<prefix>]?token=<token>&dc=<datacenter>
//
// The store is not opened; mounting it does.
func ParseBackendAddress(ctx context.Context, address string) (backend.Store, error) {
	address = strings.TrimSpace(address)
	scheme, rest, found := strings.Cut(address, "://")
	if !found || scheme == "" {
		return nil, fmt.Errorf("failed to parse address '%s': %w", address, ErrMalformedBackendAddress)
	}

	switch strings.ToLower(scheme) {
	case "memory":
		return memory.NewMemoryBackend(), nil
	case "local":
		path, _, _ := strings.Cut(rest, "?")
		if path == "" {
			return nil, fmt.Errorf("failed to parse address '%s': local requires a directory: %w", address, ErrMalformedBackendAddress)
		}
		return local.NewLocalBackend(path), nil
	case "sqlite":
		path, _, _ := strings.Cut(rest, "?")
		if path == "" {
			return nil, fmt.Errorf("failed to parse address '%s': sqlite requires a file: %w", address, ErrMalformedBackendAddress)
		}
		return sqlite.NewSQLiteBackend(path)
	case "postgres", "postgresql", "psql":
		return postgres.NewPostgresBackend(ctx, "postgres://"+rest)
	case "s3", "minio":
		config, err := parseS3Address(address)
		if err != nil {
			return nil, err
		}
		return s3.NewS3Backend(config)
	case "consul":
		config, err := parseConsulAddress(address)
		if err != nil {
			return nil, err
		}
		return consul.NewConsulBackend(config)
	}

	return nil, fmt.Errorf("failed to parse address '%s': %w", address, ErrUnknownBackendProtocolAddress)
}

func parseS3Address(address string) (*s3.S3BackendConfig, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address '%s': %w", address, errors.Join(ErrMalformedBackendAddress, err))
	}

	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if u.Host == "" || bucket == "" {
		return nil, fmt.Errorf("failed to parse address '%s': s3 requires an endpoint and a bucket: %w", address, ErrMalformedBackendAddress)
	}

	config := &s3.S3BackendConfig{
		Endpoint: u.Host,
		Bucket:   bucket,
		Prefix:   prefix,
	}
	if u.User != nil {
		config.AccessKey = u.User.Username()
		config.SecretKey, _ = u.User.Password()
	}

	if ssl := u.Query().Get("ssl"); ssl != "" {
		useSSL, err := strconv.ParseBool(ssl)
		if err != nil {
			return nil, fmt.Errorf("failed to parse address '%s': invalid ssl value '%s': %w", address, ssl, ErrMalformedBackendAddress)
		}
		config.UseSSL = useSSL
	}

	return config, nil
}

func parseConsulAddress(address string) (*consul.ConsulBackendConfig, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address '%s': %w", address, errors.Join(ErrMalformedBackendAddress, err))
	}

	query := u.Query()
	return &consul.ConsulBackendConfig{
		Address:    u.Host,
		Token:      query.Get("token"),
		Datacenter: query.Get("dc"),
		Prefix:     strings.TrimPrefix(u.Path, "/"),
	}, nil
}
