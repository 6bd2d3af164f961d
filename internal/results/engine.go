// Package results answers read queries over provisioning records: filtered
// and sorted pages, the dashboard listing, and per-controller lookups.
package results

import (
	"context"
	"log/slog"
	"strings"

	"oap/internal/logging"
	"oap/internal/provision"
	"oap/internal/query"
	"oap/internal/store"
)

// ListingPageSize is the fixed page size of the dashboard listing.
const ListingPageSize = 10

// Page is one page of records. Items is never nil.
type Page struct {
	Items      []provision.Record
	Page       int
	Total      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Filter is a substring filter on one field.
type Filter struct {
	Name string
	Text string
}

// SortRequest names a sort field and direction as clients send them.
type SortRequest struct {
	Name  string
	Order string
}

// Request is a narrow query: substring filters on requestId and externalId.
type Request struct {
	Filters  []Filter
	Sorts    []SortRequest
	Page     int
	PageSize int
}

// SearchRequest is a broad query: one term matched against several fields.
type SearchRequest struct {
	Term     string
	Sorts    []SortRequest
	Page     int
	PageSize int
}

// searchFields are AND-ed, so a term must occur in every one of them.
var searchFields = []query.Field{
	query.FieldRequestID,
	query.FieldExternalID,
	query.FieldCreatedAt,
	query.FieldController,
	query.FieldSUT,
}

// Engine runs queries against the record store.
type Engine struct {
	records store.Records
	logger  *slog.Logger
}

// NewEngine wires an engine.
func NewEngine(records store.Records, logger *slog.Logger) *Engine {
	return &Engine{records: records, logger: logging.NewComponentLogger(logger, "results")}
}

// Query filters by requestId and externalId substrings. Filters on other
// names are ignored and a missing filter matches every value.
func (e *Engine) Query(ctx context.Context, req Request) (Page, error) {
	sort := e.firstSort(ctx, req.Sorts)
	texts := map[query.Field]string{}
	for _, f := range req.Filters {
		field, ok := query.ParseField(f.Name)
		if !ok || (field != query.FieldRequestID && field != query.FieldExternalID) {
			continue
		}
		texts[field] = f.Text
	}
	filter := query.And{Predicates: []query.Predicate{
		query.Contains{Field: query.FieldRequestID, Text: texts[query.FieldRequestID]},
		query.Contains{Field: query.FieldExternalID, Text: texts[query.FieldExternalID]},
	}}
	return e.page(ctx, "results.query", filter, sort, req.Page, req.PageSize)
}

// Search matches term against requestId, externalId, createdAt, controller,
// and sut. All five must contain it.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (Page, error) {
	sort := e.firstSort(ctx, req.Sorts)
	filter := query.ContainsAll(req.Term, searchFields...)
	return e.page(ctx, "results.search", filter, sort, req.Page, req.PageSize)
}

// Listing returns the dashboard listing. With a page it returns that page of
// ListingPageSize records, newest first. Without one it returns every record
// and reports TotalPages as the record count, which existing dashboards read
// as the row total.
func (e *Engine) Listing(ctx context.Context, page *int) (Page, error) {
	newest := query.Sort{Field: query.SortCreatedAt, Order: query.Desc}
	if page != nil {
		return e.page(ctx, "results.listing", nil, newest, *page, ListingPageSize)
	}
	items, err := e.records.FindRecords(ctx, query.Spec{Sort: newest})
	if err != nil {
		return Page{}, wrapStore("results.listing", err)
	}
	items = nonNil(items)
	return Page{Items: items, Page: 1, Total: len(items), TotalPages: len(items)}, nil
}

// UserListing returns records joined to users on WWID.
func (e *Engine) UserListing(ctx context.Context) ([]provision.RecordWithUser, error) {
	rows, err := e.records.ListRecordsWithUsers(ctx)
	if err != nil {
		return nil, wrapStore("results.user_listing", err)
	}
	if rows == nil {
		rows = []provision.RecordWithUser{}
	}
	return rows, nil
}

// LatestFor returns the record with the greatest requestId whose sut and
// controller contain the given values.
func (e *Engine) LatestFor(ctx context.Context, sut, controller string) (provision.Record, bool, error) {
	spec := query.Spec{
		Filter: query.And{Predicates: []query.Predicate{
			query.Contains{Field: query.FieldSUT, Text: sut},
			query.Contains{Field: query.FieldController, Text: controller},
		}},
		Sort:  query.Sort{Field: query.SortRequestID, Order: query.Desc},
		Limit: 1,
	}
	items, err := e.records.FindRecords(ctx, spec)
	if err != nil {
		return provision.Record{}, false, wrapStore("results.latest_for", err)
	}
	if len(items) == 0 {
		return provision.Record{}, false, nil
	}
	return items[0], true, nil
}

// ActiveFor returns records on controller with any stage In Progress or
// Blocked. The match is exact, so a blank controller only finds records
// that were created without one.
func (e *Engine) ActiveFor(ctx context.Context, controller string) ([]provision.Record, error) {
	active := []string{string(provision.StatusInProgress), string(provision.StatusBlocked)}
	var anyActive query.Or
	for _, stage := range provision.AllStages() {
		anyActive.Predicates = append(anyActive.Predicates, query.In{Field: query.StatusField(stage), Values: active})
	}
	spec := query.Spec{
		Filter: query.And{Predicates: []query.Predicate{
			query.Equals{Field: query.FieldController, Value: controller},
			anyActive,
		}},
		Sort: query.DefaultSort,
	}
	items, err := e.records.FindRecords(ctx, spec)
	if err != nil {
		return nil, wrapStore("results.active_for", err)
	}
	return nonNil(items), nil
}

// Get returns one record by id.
func (e *Engine) Get(ctx context.Context, id int64) (provision.Record, error) {
	rec, err := e.records.GetRecord(ctx, id)
	if err != nil {
		if provision.KindOf(err) == provision.KindNotFound {
			return provision.Record{}, provision.Wrap("results.get", provision.KindNotFound, err)
		}
		return provision.Record{}, wrapStore("results.get", err)
	}
	return rec, nil
}

func (e *Engine) page(ctx context.Context, op string, filter query.Predicate, sort query.Sort, page, pageSize int) (Page, error) {
	total, err := e.records.CountRecords(ctx, filter)
	if err != nil {
		return Page{}, wrapStore(op, err)
	}
	window := query.Paginate(total, page, pageSize)
	items := []provision.Record{}
	if window.Offset < total {
		items, err = e.records.FindRecords(ctx, query.Spec{
			Filter: filter,
			Sort:   sort,
			Limit:  window.PageSize,
			Offset: window.Offset,
		})
		if err != nil {
			return Page{}, wrapStore(op, err)
		}
	}
	logging.WithContext(ctx, e.logger).Debug("query served",
		logging.String("op", op),
		logging.Int("total", total),
		logging.Int("page", window.Page),
	)
	return Page{
		Items:      nonNil(items),
		Page:       window.Page,
		Total:      total,
		TotalPages: window.TotalPages,
		HasPrev:    window.HasPrev,
		HasNext:    window.HasNext,
	}, nil
}

// firstSort applies the first requested sort. Clients send a list but only
// one key is honoured, and an unrecognized key falls back to requestId desc.
func (e *Engine) firstSort(ctx context.Context, sorts []SortRequest) query.Sort {
	if len(sorts) == 0 {
		return query.DefaultSort
	}
	sort, known := query.ParseSort(sorts[0].Name, sorts[0].Order)
	if !known && strings.TrimSpace(sorts[0].Name) != "" {
		logging.WithContext(ctx, e.logger).Debug("unrecognized sort field, using default",
			logging.String("sort", sorts[0].Name),
		)
	}
	return sort
}

func wrapStore(op string, err error) error {
	return provision.Wrap(op, provision.KindStoreUnavailable, err)
}

func nonNil(items []provision.Record) []provision.Record {
	if items == nil {
		return []provision.Record{}
	}
	return items
}
