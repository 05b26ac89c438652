package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/salesdash/schema"
)

// Kinds accepted by Open.
const (
	KindEmbedded = "embedded"
	KindFile     = "file"
	KindHTTP     = "http"
	KindS3       = "s3"
	KindSQL      = "sql"
)

// Options selects and configures a source.
type Options struct {
	Kind    string
	Path    string // file
	Watch   bool   // file: cache until the file changes
	URL     string // http
	Params  url.Values
	Timeout time.Duration

	S3     S3Options
	Bucket string
	Key    string

	Driver string // sql: sqlite or pgx
	DSN    string
	Query  string

	Schema schema.Config
	Logger *zap.Logger
}

// Open builds the Source described by opts. A watched file source is
// returned as *Watched and must be started by the caller; a SQL source
// holds a database handle released by its Close method.
func Open(ctx context.Context, opts Options) (Source, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Kind {
	case "", KindEmbedded:
		e := NewEmbedded()
		if len(opts.Schema.Columns) > 0 {
			e.Schema = opts.Schema
		}
		return e, nil

	case KindFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file source needs a path")
		}
		f := &File{Path: opts.Path, Schema: opts.Schema}
		if opts.Watch {
			return NewWatched(f, WithWatchLogger(logger.Named("watch"))), nil
		}
		return f, nil

	case KindHTTP:
		if opts.URL == "" {
			return nil, fmt.Errorf("http source needs a url")
		}
		return &HTTP{URL: opts.URL, Params: opts.Params, Timeout: opts.Timeout, Schema: opts.Schema}, nil

	case KindS3:
		client, err := NewS3Client(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		return &S3{Client: client, Bucket: opts.Bucket, Key: opts.Key, Schema: opts.Schema}, nil

	case KindSQL:
		if opts.Query == "" {
			return nil, fmt.Errorf("sql source needs a query")
		}
		db, err := OpenSQL(opts.Driver, opts.DSN)
		if err != nil {
			return nil, err
		}
		return &SQL{DB: db, Driver: opts.Driver, Query: opts.Query, Schema: opts.Schema}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", opts.Kind)
}
