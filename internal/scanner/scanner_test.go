package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"marketwatch/internal/components/chrono"
	"marketwatch/internal/components/telemetry"
	"marketwatch/internal/condition"
	"marketwatch/internal/history"
	"marketwatch/internal/session"
	"marketwatch/internal/stepn"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeListing(id, sellPrice int64, level int) stepn.Listing {
	raw, err := json.Marshal(map[string]any{
		"id":        id,
		"sellPrice": sellPrice,
		"level":     level,
		"quality":   1,
		"mint":      2,
		"img":       fmt.Sprintf("img/%d.png", id),
	})
	if err != nil {
		panic(err)
	}
	return stepn.Listing{
		ID:        id,
		SellPrice: sellPrice,
		Level:     level,
		Quality:   stepn.QualityCommon,
		Mint:      2,
		Img:       fmt.Sprintf("img/%d.png", id),
		Chain:     stepn.ChainSOL,
		Raw:       raw,
	}
}

func makeDetail(id int64, attrs ...float64) stepn.ListingDetail {
	raw, _ := json.Marshal(map[string]any{"id": id, "attrs": attrs})
	return stepn.ListingDetail{ID: id, Attrs: attrs, Raw: raw}
}

type fakeMarket struct {
	pages   map[int][]stepn.Listing
	details map[int64]stepn.ListingDetail

	requestedPages []int
	detailCalls    []int64
}

func (m *fakeMarket) OrderList(ctx context.Context, paging stepn.Paging) ([]stepn.Listing, error) {
	m.requestedPages = append(m.requestedPages, paging.Page)
	return m.pages[paging.Page], nil
}

func (m *fakeMarket) OrderData(ctx context.Context, orderID int64) (stepn.ListingDetail, error) {
	m.detailCalls = append(m.detailCalls, orderID)
	detail, ok := m.details[orderID]
	if !ok {
		return stepn.ListingDetail{}, fmt.Errorf("orderdata: %w", stepn.ErrNotFound)
	}
	return detail, nil
}

type recordingJournal struct {
	matches []string
}

func (j *recordingJournal) Request(string)    {}
func (j *recordingJournal) Match(text string) { j.matches = append(j.matches, text) }

type recordingHistory struct {
	matches []history.Match
}

func (h *recordingHistory) Record(ctx context.Context, match history.Match) error {
	h.matches = append(h.matches, match)
	return nil
}

func newTestScanner(market Market, opts Options) Scanner {
	return NewScanner(market, opts, telemetry.NopAPI{})
}

func TestListingOnlyLimitTruncatesPage(t *testing.T) {
	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {
			makeListing(1, 1160000, 5),
			makeListing(2, 1170000, 5),
			makeListing(3, 1180000, 5),
			makeListing(4, 1190000, 5),
			makeListing(5, 1200000, 5),
		},
	}}
	scanner := newTestScanner(market, Options{})

	res, err := scanner.ScanRule(context.Background(), Rule{
		Title:     "walkers",
		Condition: "%level >= 5",
		PageEnd:   0,
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	require.Equal(t, []int{0}, market.requestedPages)
	require.Empty(t, market.detailCalls)
	require.Zero(t, res.Matches)
	require.Equal(t, 2, res.Listings)
}

func TestPagesAreInclusive(t *testing.T) {
	market := &fakeMarket{pages: map[int][]stepn.Listing{}}
	scanner := newTestScanner(market, Options{})

	res, err := scanner.ScanRule(context.Background(), Rule{
		Condition: "%level >= 5",
		Paging:    stepn.Paging{Page: 2},
		PageEnd:   4,
	})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 4}, market.requestedPages)
	require.Equal(t, 3, res.Pages)
	require.False(t, res.Stopped)
}

func TestMessageFormat(t *testing.T) {
	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {makeListing(206356264, 1160000, 5)},
	}}
	j := &recordingJournal{}
	scanner := newTestScanner(market, Options{Journal: j})

	res, err := scanner.ScanRule(context.Background(), Rule{
		Title:        "walkers",
		Condition:    "%price < 1.2",
		ImageEnabled: true,
	})
	require.NoError(t, err)
	expected := "walkers => details: 1.16 SOL - lvl 5 - common - 2 mint\nLink: https://m.stepn.com/order/206356264\n"
	require.Equal(t, []Message{{
		Text:  expected,
		Image: "https://res.stepn.com/imgOut/img/206356264.png",
	}}, res.Messages)
	require.Equal(t, []string{expected}, j.matches)
}

func TestDetailStage(t *testing.T) {
	market := &fakeMarket{
		pages: map[int][]stepn.Listing{
			0: {
				makeListing(1, 1160000, 5),
				makeListing(2, 1160000, 5),
				makeListing(3, 1160000, 5),
				makeListing(4, 1160000, 1),
			},
		},
		details: map[int64]stepn.ListingDetail{
			// 1 is gone by the time the detail is fetched
			2: makeDetail(2, 49, 53, 17, 57),
			3: makeDetail(3, 12, 5, 17, 57),
		},
	}
	rec := &recordingHistory{}
	scanner := newTestScanner(market, Options{
		History: rec,
		Clock:   &chrono.Fixed{T: time.Unix(1717243200, 0)},
	})

	res, err := scanner.ScanRule(context.Background(), Rule{
		Title:           "lucky",
		Condition:       "%level >= 5",
		DetailCondition: "%attr.Luck >= 50",
		Limit:           5,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, market.detailCalls)
	require.Equal(t, 1, res.Matches)
	require.Len(t, res.Messages, 1)
	require.Equal(
		t,
		"lucky => details: 1.16 SOL - lvl 5 - common - 2 mint\nLink: https://m.stepn.com/order/2\n - 4.9 eff - 5.3 luck - 1.7 com - 5.7 res\n",
		res.Messages[0].Text,
	)
	require.Empty(t, res.Messages[0].Image)

	require.Len(t, rec.matches, 1)
	require.Equal(t, int64(2), rec.matches[0].OrderID)
	require.Equal(t, "lucky", rec.matches[0].Rule)
	require.Nil(t, rec.matches[0].Drift)
}

func TestDetailLimitStopsPaging(t *testing.T) {
	market := &fakeMarket{
		pages: map[int][]stepn.Listing{
			0: {makeListing(1, 1160000, 5), makeListing(2, 1160000, 5)},
			1: {makeListing(3, 1160000, 5)},
		},
		details: map[int64]stepn.ListingDetail{
			1: makeDetail(1, 100, 100, 100, 100),
			2: makeDetail(2, 100, 100, 100, 100),
			3: makeDetail(3, 100, 100, 100, 100),
		},
	}
	scanner := newTestScanner(market, Options{})

	res, err := scanner.ScanRule(context.Background(), Rule{
		Condition:       "%level >= 5",
		DetailCondition: "%attr.Efficiency > 0",
		PageEnd:         5,
		Limit:           1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Matches)
	require.Equal(t, []int{0}, market.requestedPages)
	require.Equal(t, []int64{1}, market.detailCalls)
	require.True(t, res.Stopped)
}

func TestThresholdTracking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratio.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"price": 1000000, "threshold": 5}`), 0644))

	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {
			makeListing(1, 1030000, 5),
			makeListing(2, 1060000, 5),
			makeListing(3, 1070000, 5),
			makeListing(4, 1200000, 5),
		},
	}}
	rec := &recordingHistory{}
	scanner := newTestScanner(market, Options{History: rec})

	res, err := scanner.ScanRule(context.Background(), Rule{
		Title:         "drift",
		Condition:     "%level >= 5",
		Threshold:     5,
		ThresholdFile: path,
	})
	require.NoError(t, err)
	require.True(t, res.PriceUpdated)
	require.Len(t, res.Messages, 2)
	require.Equal(
		t,
		"drift => details: 1.06 SOL - lvl 5 - common - 2 mint\nLink: https://m.stepn.com/order/2\n"+
			"\n6% from previous price, new price limit: 1.06 SOL (+1.11 SOL/-1.01 SOL) (5%)",
		res.Messages[0].Text,
	)
	require.Contains(t, res.Messages[1].Text, "\n13.21% from previous price")

	require.Len(t, rec.matches, 2)
	require.NotNil(t, rec.matches[0].Drift)
	require.Equal(t, 6.0, *rec.matches[0].Drift)

	// 1200000 is judged against the new reference but does not rewrite it
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\n    \"price\": 1060000,\n    \"threshold\": 5\n}\n", string(contents))
}

func TestThresholdWrittenOncePerScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratio.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"price": 1000000, "threshold": 5}`), 0644))

	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {
			makeListing(1, 1060000, 5),
			makeListing(2, 1200000, 5),
			makeListing(3, 1400000, 5),
		},
	}}
	scanner := newTestScanner(market, Options{})

	rule := Rule{
		Title:         "drift",
		Condition:     "%level >= 5",
		Threshold:     5,
		ThresholdFile: path,
	}
	res, err := scanner.ScanRule(context.Background(), rule)
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)
	require.Contains(t, res.Messages[0].Text, "\n6% from previous price")
	require.Contains(t, res.Messages[1].Text, "\n13.21% from previous price")
	require.Contains(t, res.Messages[2].Text, "\n32.08% from previous price")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\n    \"price\": 1060000,\n    \"threshold\": 5\n}\n", string(contents))

	// the next scan starts from the reference the previous one wrote
	market.pages[0] = []stepn.Listing{makeListing(4, 1400000, 5)}
	res, err = scanner.ScanRule(context.Background(), rule)
	require.NoError(t, err)
	require.True(t, res.PriceUpdated)
	require.Contains(t, res.Messages[0].Text, "\n32.08% from previous price")

	contents, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\n    \"price\": 1400000,\n    \"threshold\": 5\n}\n", string(contents))
}

func TestThresholdSeedAndStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratio.json")
	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {makeListing(1, 1160000, 5), makeListing(2, 2000000, 5)},
		1: {makeListing(3, 3000000, 5)},
	}}
	scanner := newTestScanner(market, Options{})

	res, err := scanner.ScanRule(context.Background(), Rule{
		Condition:         "%level >= 5",
		Threshold:         5,
		ThresholdFile:     path,
		PageEnd:           1,
		StopOnPriceUpdate: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	require.NotContains(t, res.Messages[0].Text, "from previous price")
	require.True(t, res.Stopped)
	require.Equal(t, []int{0}, market.requestedPages)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestRulePriceSeedsReference(t *testing.T) {
	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {makeListing(1, 1030000, 5), makeListing(2, 1100000, 5)},
	}}
	scanner := newTestScanner(market, Options{})

	res, err := scanner.ScanRule(context.Background(), Rule{
		Condition:     "%level >= 5",
		Price:         1000000,
		Threshold:     5,
		ThresholdFile: filepath.Join(t.TempDir(), "ratio.json"),
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	require.Contains(t, res.Messages[0].Text, "\n10% from previous price")
}

func TestHaltOnFirstMatch(t *testing.T) {
	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {makeListing(1, 1160000, 5), makeListing(2, 1160000, 5)},
	}}
	scanner := newTestScanner(market, Options{HaltOnFirstMatch: true})

	res, err := scanner.Scan(context.Background(), []Rule{
		{Title: "none", Condition: "%level > 10"},
		{Title: "first", Condition: "%level >= 5"},
		{Title: "skipped", Condition: "%level >= 5"},
	})
	require.NoError(t, err)
	require.True(t, res.Halted)
	require.Len(t, res.Rules, 2)
	require.Len(t, res.Messages, 1)
	require.Equal(t, []int{0, 0}, market.requestedPages)
}

func TestScanRunsEveryRule(t *testing.T) {
	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {makeListing(1, 1160000, 5), makeListing(2, 1160000, 7)},
	}}
	scanner := newTestScanner(market, Options{})

	res, err := scanner.Scan(context.Background(), []Rule{
		{Title: "five", Condition: "%level == 5"},
		{Title: "any", Condition: ""},
	})
	require.NoError(t, err)
	require.False(t, res.Halted)
	require.Len(t, res.Rules, 2)
	require.Len(t, res.Rules[0].Messages, 1)
	require.Len(t, res.Rules[1].Messages, 2)
	require.Len(t, res.Messages, 3)
}

func TestConditionErrorAbortsScan(t *testing.T) {
	market := &fakeMarket{pages: map[int][]stepn.Listing{
		0: {makeListing(1, 1160000, 5)},
	}}
	scanner := newTestScanner(market, Options{})

	_, err := scanner.Scan(context.Background(), []Rule{
		{Title: "broken", Condition: "%level >= five"},
	})
	require.ErrorIs(t, err, condition.ErrSyntax)
	require.Contains(t, err.Error(), `rule "broken"`)
}

type fakeAPI struct {
	valid map[string]bool
	// rejectAll makes every market call fail with ErrNotAuthorized.
	rejectAll bool

	logins       int
	listSessions []string
}

func (f *fakeAPI) Login(ctx context.Context, account, passwordHash string) (string, error) {
	f.logins++
	return fmt.Sprintf("session-%d", f.logins), nil
}

func (f *fakeAPI) CodeCheck(ctx context.Context, sessionID, code string) error {
	f.valid[sessionID] = true
	return nil
}

func (f *fakeAPI) UserBasic(ctx context.Context, sessionID string) error {
	if f.valid[sessionID] {
		return nil
	}
	return stepn.ErrNotAuthorized
}

func (f *fakeAPI) OrderList(ctx context.Context, sessionID string, paging stepn.Paging) ([]stepn.Listing, error) {
	f.listSessions = append(f.listSessions, sessionID)
	if f.rejectAll || !f.valid[sessionID] {
		return nil, fmt.Errorf("orderlist: %w", stepn.ErrNotAuthorized)
	}
	return []stepn.Listing{makeListing(1, 1160000, 5)}, nil
}

func (f *fakeAPI) OrderData(ctx context.Context, sessionID string, orderID int64) (stepn.ListingDetail, error) {
	if f.rejectAll || !f.valid[sessionID] {
		return stepn.ListingDetail{}, fmt.Errorf("orderdata: %w", stepn.ErrNotAuthorized)
	}
	return makeDetail(orderID, 10, 20, 30, 40), nil
}

type memoryStore struct {
	cred *session.Credential
}

func (s *memoryStore) Load(ctx context.Context) (session.Credential, error) {
	if s.cred == nil {
		return session.Credential{}, session.ErrNoCredential
	}
	return *s.cred, nil
}

func (s *memoryStore) Save(ctx context.Context, cred session.Credential) error {
	s.cred = &cred
	return nil
}

type staticCode string

func (c staticCode) Code() (string, error) {
	return string(c), nil
}

func newSessionMarket(api *fakeAPI, store session.Store) (SessionMarket, *session.Manager) {
	manager := session.NewManager(api, store, session.Options{
		Account:  "runner@example.com",
		Password: "hunter2",
		Codes:    staticCode("123456"),
	}, telemetry.NopAPI{})
	return NewSessionMarket(api, manager, telemetry.NopAPI{}), manager
}

func TestSessionMarketReauthenticates(t *testing.T) {
	api := &fakeAPI{valid: map[string]bool{"persisted": true}}
	market, manager := newSessionMarket(api, &memoryStore{cred: &session.Credential{SessionID: "persisted"}})
	require.NoError(t, manager.EnsureAuthenticated(context.Background()))

	// the session expires between runs of the scanner
	api.valid["persisted"] = false

	listings, err := market.OrderList(context.Background(), stepn.Paging{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, 1, api.logins)
	require.Equal(t, []string{"persisted", "session-1"}, api.listSessions)
	require.Equal(t, "session-1", manager.SessionID())
}

func TestSessionMarketDoubleRejectionIsFatal(t *testing.T) {
	api := &fakeAPI{valid: map[string]bool{}, rejectAll: true}
	market, manager := newSessionMarket(api, &memoryStore{})
	require.NoError(t, manager.EnsureAuthenticated(context.Background()))
	require.Equal(t, 1, api.logins)

	scanner := newTestScanner(market, Options{})
	_, err := scanner.Scan(context.Background(), []Rule{{Title: "any", Condition: "%level >= 1"}})
	require.ErrorIs(t, err, stepn.ErrFatal)
	require.ErrorIs(t, err, stepn.ErrNotAuthorized)
	// one login for the rejected request, nothing more
	require.Equal(t, 2, api.logins)
}

func TestConsoleNotifier(t *testing.T) {
	var out bytes.Buffer
	notifier := NewConsoleNotifier(&out)
	err := notifier.Notify(context.Background(), Batch{
		Mention: "stepnwatcher",
		Messages: []Message{
			{Text: "walkers => details: 1.16 SOL\n", Image: "https://res.stepn.com/imgOut/a.png"},
		},
	})
	require.NoError(t, err)
	require.Contains(t, out.String(), "@stepnwatcher")
	require.Contains(t, out.String(), "walkers => details: 1.16 SOL")
	require.Contains(t, out.String(), "https://res.stepn.com/imgOut/a.png")
}
