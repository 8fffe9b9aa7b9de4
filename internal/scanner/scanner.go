// Package scanner runs rules against the market: it pages through listings,
// filters them by condition and price drift, checks the details of what is
// left and collects the messages of every match.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"marketwatch/internal/components/assert"
	"marketwatch/internal/components/chrono"
	"marketwatch/internal/components/journal"
	"marketwatch/internal/components/telemetry"
	"marketwatch/internal/condition"
	"marketwatch/internal/history"
	"marketwatch/internal/stepn"
	"marketwatch/internal/threshold"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_scanner_page      = "scanner.page"
	report_scanner_gone      = "scanner.order-gone"
	report_scanner_matches   = "scanner.matches"
	report_scanner_history   = "scanner.history"
	report_scanner_threshold = "scanner.threshold"
)

var tracer = otel.Tracer("internal/scanner")

// Recorder keeps matches beyond the run, implemented by history.Store.
type Recorder interface {
	Record(ctx context.Context, match history.Match) error
}

type Options struct {
	// HaltOnFirstMatch ends the whole scan after the first match of any rule.
	HaltOnFirstMatch bool
	Journal          journal.Journal
	// History is optional.
	History Recorder
	Clock   chrono.API
}

type Scanner struct {
	market Market
	opts   Options
	tel    telemetry.API
}

func NewScanner(market Market, opts Options, tel telemetry.API) Scanner {
	assert.NotNil(market)
	assert.NotNil(tel)
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardImpl()
	}
	return Scanner{
		market: market,
		opts:   opts,
		tel:    telemetry.NewScopedAPI("scanner", tel),
	}
}

type RuleResult struct {
	Title    string
	Pages    int
	Listings int
	// Matches counts listings whose detail condition held.
	Matches  int
	Messages []Message
	// PriceUpdated is set when the scan rewrote the reference price of the rule.
	PriceUpdated bool
	// Stopped is set when the rule ended before its last page.
	Stopped bool
}

type Result struct {
	Rules    []RuleResult
	Messages []Message
	// Halted is set when HaltOnFirstMatch skipped the remaining rules.
	Halted bool
}

// Scan runs the rules one after another. Any error aborts the scan, the
// messages collected so far are returned alongside it but should not be sent.
func (s Scanner) Scan(ctx context.Context, rules []Rule) (Result, error) {
	var result Result
	for _, rule := range rules {
		res, err := s.ScanRule(ctx, rule)
		result.Rules = append(result.Rules, res)
		result.Messages = append(result.Messages, res.Messages...)
		if err != nil {
			return result, fmt.Errorf("rule %q: %w", rule.Title, err)
		}
		if s.opts.HaltOnFirstMatch && len(res.Messages) > 0 {
			result.Halted = true
			break
		}
	}
	s.tel.ReportCount(report_scanner_matches, int64(len(result.Messages)))
	return result, nil
}

// ScanRule pages from Paging.Page through PageEnd and stops early when the
// rule reached its limit or asked to stop.
func (s Scanner) ScanRule(ctx context.Context, rule Rule) (RuleResult, error) {
	ctx, span := tracer.Start(ctx, "ScanRule")
	defer span.End()
	span.SetAttributes(attribute.String("rule", rule.Title))

	res, err := s.scanRule(ctx, rule)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.Int("pages", res.Pages),
		attribute.Int("matches", len(res.Messages)),
	)
	return res, err
}

func (s Scanner) scanRule(ctx context.Context, rule Rule) (RuleResult, error) {
	res := RuleResult{Title: rule.Title}

	var tracker *threshold.Tracker
	if rule.tracksPrice() {
		var err error
		tracker, err = threshold.Open(rule.ThresholdFile)
		if err != nil {
			s.tel.ReportBroken(report_scanner_threshold, err, rule.Title)
			return res, err
		}
		tracker.SetDefault(rule.Price, rule.Threshold)
	}

	paging := rule.Paging
	page := paging.Page
	for page <= rule.PageEnd {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		paging.Page = page
		page++

		listings, err := s.market.OrderList(ctx, paging)
		if err != nil {
			return res, err
		}
		res.Pages++
		s.tel.ReportDebug(report_scanner_page, rule.Title, paging.Page, len(listings))

		if rule.DetailCondition == "" && rule.Limit > 0 && len(listings) > rule.Limit {
			listings = listings[:rule.Limit]
		}

		for _, listing := range listings {
			res.Listings++
			stop, err := s.evaluate(ctx, rule, tracker, listing, &res)
			if err != nil {
				return res, err
			}
			if stop || rule.Limit > 0 && res.Matches >= rule.Limit {
				res.Stopped = true
				return res, nil
			}
		}
	}
	return res, nil
}

// evaluate runs one listing through both stages, stop is true when the rule
// should not look at further listings.
func (s Scanner) evaluate(
	ctx context.Context,
	rule Rule,
	tracker *threshold.Tracker,
	listing stepn.Listing,
	res *RuleResult,
) (bool, error) {
	ok, err := condition.Match(rule.Condition, listing)
	if err != nil {
		return false, fmt.Errorf("listing %d: %w", listing.ID, err)
	}
	if !ok {
		return false, nil
	}

	var update threshold.Update
	if tracker != nil {
		update, err = tracker.MaybeUpdate(float64(listing.SellPrice), rule.Threshold)
		if err != nil {
			s.tel.ReportBroken(report_scanner_threshold, err, rule.Title)
			return false, err
		}
		if !update.Updated {
			return false, nil
		}
		if update.Written {
			res.PriceUpdated = true
		}
	}
	priceStop := rule.StopOnPriceUpdate && update.Updated

	text := listingMessage(rule.Title, listing)
	if update.HasDrift {
		text += driftLine(listing, update.Drift, rule.Threshold)
	}

	if rule.DetailCondition != "" {
		detail, err := s.market.OrderData(ctx, listing.ID)
		if errors.Is(err, stepn.ErrNotFound) {
			s.tel.ReportDebug(report_scanner_gone, "met conditions but the order is already gone", listing.ID)
			return priceStop, nil
		}
		if err != nil {
			return false, err
		}

		text += attrLine(detail)
		matched, err := condition.Match(rule.DetailCondition, detail)
		if err != nil {
			return false, fmt.Errorf("order %d: %w", listing.ID, err)
		}
		if !matched {
			return priceStop, nil
		}
		res.Matches++
	}

	msg := Message{Text: text}
	if rule.ImageEnabled {
		msg.Image = imageURL(listing)
	}
	res.Messages = append(res.Messages, msg)
	s.record(ctx, rule, listing, update, text)
	return priceStop || s.opts.HaltOnFirstMatch, nil
}

func (s Scanner) record(ctx context.Context, rule Rule, listing stepn.Listing, update threshold.Update, text string) {
	s.opts.Journal.Match(text)
	if s.opts.History == nil {
		return
	}

	match := history.Match{
		Rule:      rule.Title,
		OrderID:   listing.ID,
		SellPrice: listing.SellPrice,
		Message:   text,
		MatchedAt: s.opts.Clock.Now(),
	}
	if update.HasDrift {
		drift := update.Drift
		match.Drift = &drift
	}
	err := s.opts.History.Record(ctx, match)
	if err != nil {
		s.tel.ReportBroken(report_scanner_history, err, rule.Title)
	}
}
