package api

import (
	"oap/internal/provision"
	"oap/internal/results"
)

// FromRecord converts a record.
func FromRecord(rec provision.Record) Record {
	return Record{
		ProvisionID:    rec.ID,
		RequestID:      rec.RequestID,
		ExternalID:     rec.ExternalID,
		WWID:           rec.WWID,
		UserID:         rec.UserID,
		Email:          rec.Email,
		Controller:     rec.Controller,
		SUT:            rec.SUT,
		Location:       rec.Location,
		Kit:            rec.Kit,
		IFWIBinary:     rec.IFWIBinary,
		BIOSFile:       rec.BIOSFile,
		WIMName:        rec.WIMName,
		WiFiName:       rec.WiFiName,
		WiFiPassword:   rec.WiFiPassword,
		SharePath:      rec.SharePath,
		ShareUser:      rec.ShareUser,
		SharePassword:  rec.SharePassword,
		IFWIStatus:     string(rec.IFWI.Status),
		IFWIResultLink: rec.IFWI.ResultLink,
		BIOSStatus:     string(rec.BIOS.Status),
		BIOSResultLink: rec.BIOS.ResultLink,
		OSStatus:       string(rec.OS.Status),
		OSResultLink:   rec.OS.ResultLink,
		E2EStatus:      string(rec.E2E.Status),
		E2EResultLink:  rec.E2E.ResultLink,
		CreatedAt:      provision.FormatTime(rec.CreatedAt),
	}
}

// FromRecords converts a slice; the result is never nil.
func FromRecords(recs []provision.Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out
}

// FromRecordsWithUsers converts joined rows. The user's email wins over the
// record's, as the joined listing has always shown it.
func FromRecordsWithUsers(rows []provision.RecordWithUser) []RecordWithUser {
	out := make([]RecordWithUser, 0, len(rows))
	for _, row := range rows {
		dto := RecordWithUser{
			Record:    FromRecord(row.Record),
			UserName:  row.User.UserName,
			FirstName: row.User.FirstName,
			LastName:  row.User.LastName,
			UserGroup: row.User.UserGroup,
		}
		if row.User.Email != "" {
			dto.Email = row.User.Email
		}
		out = append(out, dto)
	}
	return out
}

// FromActive projects records onto the active-work view.
func FromActive(recs []provision.Record) []ActiveWork {
	out := make([]ActiveWork, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ActiveWork{
			ProvisionID: rec.ID,
			Controller:  rec.Controller,
			SUT:         rec.SUT,
			IFWIStatus:  string(rec.IFWI.Status),
			BIOSStatus:  string(rec.BIOS.Status),
			OSStatus:    string(rec.OS.Status),
			E2EStatus:   string(rec.E2E.Status),
		})
	}
	return out
}

// FromBatch converts a batch.
func FromBatch(b provision.Batch) Batch {
	return Batch{GlobalID: b.GlobalID, UserID: b.UserID, CreatedAt: provision.FormatTime(b.CreatedAt)}
}

// FromControllers converts controllers.
func FromControllers(items []provision.Controller) []Controller {
	out := make([]Controller, 0, len(items))
	for _, c := range items {
		out = append(out, Controller{ID: c.ID, Name: c.Name, Location: c.Location, CreatedAt: provision.FormatTime(c.CreatedAt)})
	}
	return out
}

// FromPlatforms converts platforms.
func FromPlatforms(items []provision.Platform) []Platform {
	out := make([]Platform, 0, len(items))
	for _, p := range items {
		out = append(out, Platform{ID: p.ID, Name: p.Name, CreatedAt: provision.FormatTime(p.CreatedAt)})
	}
	return out
}

// PageEnvelope wraps a results page.
func PageEnvelope(page results.Page) Envelope {
	total, prev, next := page.TotalPages, page.HasPrev, page.HasNext
	return Envelope{
		Status:     StatusSuccess,
		Data:       FromRecords(page.Items),
		TotalPages: &total,
		HasPrev:    &prev,
		HasNext:    &next,
	}
}

// QueryFromRequest maps the narrow-query body onto the engine request.
func QueryFromRequest(req QueryRequest) results.Request {
	out := results.Request{Page: req.Page, PageSize: req.PerPage}
	for _, f := range req.Filters {
		out.Filters = append(out.Filters, results.Filter{Name: f.Name, Text: f.Text})
	}
	out.Sorts = sortsFromRequest(req.Sorts)
	return out
}

// SearchFromRequest maps the broad-query body onto the engine request.
func SearchFromRequest(req SearchRequest) results.SearchRequest {
	return results.SearchRequest{
		Term:     req.Search,
		Sorts:    sortsFromRequest(req.Sorts),
		Page:     req.Page,
		PageSize: req.PerPage,
	}
}

func sortsFromRequest(sorts []SortRequest) []results.SortRequest {
	out := make([]results.SortRequest, 0, len(sorts))
	for _, s := range sorts {
		out = append(out, results.SortRequest{Name: s.Name, Order: s.Order})
	}
	return out
}
