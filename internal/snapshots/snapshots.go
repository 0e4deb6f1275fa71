// Package snapshots archives the raw html of every extracted page in badger so
// extraction can be replayed offline.
package snapshots

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"
	"webtop-sync/internal/components/assert"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/snapshots")

const (
	report_archive_expire = "archive.expire"
	report_archive_list   = "archive.list"
)

var ErrNotFound = badger.ErrKeyNotFound

// Page is one archived page.
type Page struct {
	Kind    records.Kind
	URL     string
	Date    string
	HTML    []byte
	SavedAt int64
	// ExpiresAt is a unix timestamp, zero never expires.
	ExpiresAt int64
}

// Open opens a badger database at dir, an empty dir keeps it in memory.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

type Archive struct {
	db       *badger.DB
	lifetime time.Duration
	time     chrono.TimeAPI
	tel      telemetry.API
}

// NewArchive creates an Archive whose pages live for lifetime, zero keeps them
// forever.
func NewArchive(db *badger.DB, lifetime time.Duration, time chrono.TimeAPI, tel telemetry.API) Archive {
	assert.NotNil(db)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Archive{
		db:       db,
		lifetime: lifetime,
		time:     time,
		tel:      telemetry.NewScopedAPI("snapshots", tel),
	}
}

func normalize(rawUrl string) (string, error) {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return "", err
	}
	return purell.NormalizeURL(
		parsed,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	), nil
}

// Key is "<kind>:<date>:<normalized url>", so one kind's pages list in date
// order.
func Key(kind records.Kind, rawUrl, date string) (string, error) {
	normalized, err := normalize(rawUrl)
	if err != nil {
		return "", err
	}
	return string(kind) + ":" + date + ":" + normalized, nil
}

// Save archives the html of a page under today's date, replacing an earlier
// capture of the same page on the same day.
func (a Archive) Save(ctx context.Context, kind records.Kind, rawUrl, html string) error {
	ctx, span := tracer.Start(ctx, "save")
	defer span.End()

	now := a.time.Now()
	date := chrono.Today(a.time)
	key, err := Key(kind, rawUrl, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create archive key")
		return err
	}
	span.SetAttributes(attribute.String("archive_key", key))

	page := Page{
		Kind:    kind,
		URL:     rawUrl,
		Date:    date,
		HTML:    []byte(html),
		SavedAt: now.Unix(),
	}
	if a.lifetime > 0 {
		page.ExpiresAt = now.Add(a.lifetime).Unix()
	}

	serialized := bytes.NewBuffer(nil)
	err = gob.NewEncoder(serialized).Encode(page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize page")
		return err
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), serialized.Bytes())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}

func decode(item *badger.Item) (Page, error) {
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		return Page{}, err
	}
	var page Page
	err = gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&page)
	return page, err
}

func (a Archive) expired(page Page) bool {
	return page.ExpiresAt > 0 && a.time.Now().Unix() >= page.ExpiresAt
}

func (a Archive) delete(key []byte) {
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		a.tel.ReportWarning(report_archive_expire, err, string(key))
	}
}

// Get returns the page captured on date, ErrNotFound when it is missing or
// expired.
func (a Archive) Get(ctx context.Context, kind records.Kind, rawUrl, date string) (Page, error) {
	ctx, span := tracer.Start(ctx, "get")
	defer span.End()

	key, err := Key(kind, rawUrl, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create archive key")
		return Page{}, err
	}
	span.SetAttributes(attribute.String("archive_key", key))

	var page Page
	err = a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		page, err = decode(item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read archived page")
		return Page{}, err
	}

	if a.expired(page) {
		a.delete([]byte(key))
		return Page{}, ErrNotFound
	}
	return page, nil
}

// List returns every live page of a kind, oldest date first. Expired pages
// are removed along the way.
func (a Archive) List(ctx context.Context, kind records.Kind) ([]Page, error) {
	ctx, span := tracer.Start(ctx, "list")
	defer span.End()

	prefix := []byte(string(kind) + ":")
	var pages []Page
	var expired [][]byte
	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			item := it.Item()
			page, err := decode(item)
			if err != nil {
				a.tel.ReportWarning(report_archive_list, err, string(item.Key()))
				continue
			}
			if a.expired(page) {
				expired = append(expired, item.KeyCopy(nil))
				continue
			}
			pages = append(pages, page)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to iterate archive")
		return nil, err
	}

	for _, key := range expired {
		a.delete(key)
	}

	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Date != pages[j].Date {
			return pages[i].Date < pages[j].Date
		}
		return strings.Compare(pages[i].URL, pages[j].URL) < 0
	})
	return pages, nil
}
