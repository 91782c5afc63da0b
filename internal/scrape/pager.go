package scrape

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/linkedin"
)

// Pager walks the search results of one query. The first request goes to the
// search page, which carries the total; later ones go to the guest API.
// A Pager belongs to a single run.
type Pager struct {
	fetch   *Fetcher
	baseURL string
	now     func() time.Time
	log     *zap.Logger

	total      int
	totalKnown bool
}

func NewPager(fetch *Fetcher, baseURL string, now func() time.Time, logger *zap.Logger) *Pager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pager{fetch: fetch, baseURL: baseURL, now: now, log: logger.Named("pager")}
}

// NextPage fetches and parses the page at offset. An offset at or past the
// platform cap, or past a known total, yields an empty final page without a
// request. HTTP 400 is the site's answer past the last page and also ends
// pagination. Any other failure surviving the retries is returned.
func (p *Pager) NextPage(ctx context.Context, q linkedin.Query, offset int) (domain.SearchPage, error) {
	page := domain.SearchPage{Offset: offset, NextOffset: offset, Total: p.total}
	if offset >= linkedin.PlatformCap {
		p.log.Info("reached platform pagination cap", zap.Int("offset", offset))
		return page, nil
	}
	if p.totalKnown && offset >= p.total {
		return page, nil
	}

	endpoint, size := linkedin.SearchURL(p.baseURL), linkedin.FirstPageSize
	if offset > 0 {
		endpoint, size = linkedin.GuestSearchURL(p.baseURL), linkedin.GuestPageSize
		q = q.With(linkedin.ParamStart, strconv.Itoa(offset))
	}

	anchor := p.now()
	body, err := p.fetch.Get(ctx, endpoint, q.Values())
	if err != nil {
		if apperrors.StatusCode(err) == http.StatusBadRequest {
			p.log.Info("no more results", zap.Int("offset", offset))
			return page, nil
		}
		return page, err
	}

	res, err := linkedin.ParseSearchPage(bytes.NewReader(body), p.baseURL, anchor)
	if err != nil {
		return page, err
	}
	for _, d := range res.Dropped {
		p.log.Warn("dropped listing", zap.Int("offset", offset), zap.Error(d))
	}
	if offset == 0 && res.TotalKnown {
		p.total, p.totalKnown = res.Total, true
		p.log.Info("total results available", zap.Int("total", res.Total))
	}

	page.Listings = res.Listings
	page.Cards = res.Cards
	page.Total = p.total
	page.NextOffset = offset + size
	page.HasMore = res.Cards > 0 &&
		page.NextOffset < linkedin.PlatformCap &&
		(!p.totalKnown || page.NextOffset < p.total)

	p.log.Debug("page parsed",
		zap.Int("offset", offset),
		zap.Int("cards", res.Cards),
		zap.Int("listings", len(res.Listings)),
		zap.Bool("has_more", page.HasMore),
	)
	return page, nil
}
