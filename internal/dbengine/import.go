package dbengine

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/gleyba/test-db/internal/csvload"
	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/store"
	"github.com/gleyba/test-db/internal/value"
)

// Import reads r as CSV and replaces (or creates) the table named name,
// mirroring handleAutoUpload/LoadDatasetFromReaderAuto: no merge, the
// previous table contents (if any) are gone once this returns
// successfully.
func (db *Database) Import(name string, r io.Reader) (*TableMeta, error) {
	return db.importReader(name, r)
}

func (db *Database) importReader(name string, r io.Reader) (*TableMeta, error) {
	reader, header, err := csvload.Open(r)
	if err != nil {
		return nil, err
	}

	w, err := store.CreateTable(db.tableDir(name), db.Config.MaxRowsPerStripe)
	if err != nil {
		return nil, err
	}
	headerVals := make([]value.Value, len(header))
	for i, h := range header {
		headerVals[i] = value.String(h)
	}
	if err := w.WriteHeader(headerVals); err != nil {
		w.Close()
		return nil, err
	}

	var nrows int64
	for {
		row, ok, err := reader.Next()
		if err != nil {
			w.Close()
			return nil, err
		}
		if !ok {
			break
		}
		if err := w.WriteRow(row); err != nil {
			w.Close()
			return nil, err
		}
		nrows++
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	tm := &TableMeta{
		ID:      uuid.New(),
		Name:    name,
		Created: time.Now().UTC().UnixNano(),
		NRows:   nrows,
		Headers: header,
	}
	if err := db.register(tm); err != nil {
		return nil, err
	}
	if db.log != nil {
		db.log.Infow("imported table", "table", name, "rows", nrows)
	}
	return tm, nil
}

// ImportRemote fetches a CSV from a remote URL and imports it as name,
// supporting http(s):// (a plain GET) and s3:// (via aws-sdk-go-v2).
func (db *Database) ImportRemote(ctx context.Context, name, rawURL string) (*TableMeta, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, dberr.Invalid("invalid remote URL %q: %v", rawURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, dberr.Invalid("building remote request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, dberr.Wrap(dberr.KindStorage, err, "fetching remote dataset %s", rawURL)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, dberr.Storagef("remote dataset %s returned status %d", rawURL, resp.StatusCode)
		}
		return db.importReader(name, resp.Body)

	case "s3":
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, dberr.Wrap(dberr.KindStorage, err, "loading AWS config for s3 import")
		}
		svc := s3.NewFromConfig(cfg)
		bucket := u.Host
		key := strings.TrimPrefix(u.Path, "/")
		out, err := svc.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, dberr.Wrap(dberr.KindStorage, err, "fetching s3://%s/%s", bucket, key)
		}
		defer out.Body.Close()
		return db.importReader(name, out.Body)

	default:
		return nil, dberr.Invalid("unsupported remote scheme %q", u.Scheme)
	}
}
