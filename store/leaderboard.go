package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// MaxLeaderboardEntries caps how many regions are kept.
const MaxLeaderboardEntries = 200

var (
	ErrInvalidRegion = errors.New("store: region must be a two-letter code")
	ErrInvalidScore  = errors.New("store: score must not be negative")
)

// Regions offered by the front-ends for selection.
var Regions = []string{
	"VN", "US", "JP", "KR", "CN", "TH", "SG", "MY", "PH", "ID", "IN", "DE", "FR", "GB", "IT",
	"ES", "RU", "UA", "BR", "AR", "PE", "CL", "MX", "CA", "AU", "NZ", "SA", "AE", "EG", "ZA",
}

// Entry is the stored record for one region. Updated is epoch milliseconds.
type Entry struct {
	Score   int   `json:"score"`
	Updated int64 `json:"updated"`
}

// Ranked is an entry with its region, as listed for display.
type Ranked struct {
	Region  string `json:"code"`
	Score   int    `json:"score"`
	Updated int64  `json:"updated"`
}

// Leaderboard maps a region code to its best submitted score.
type Leaderboard struct {
	kv     KV
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

type LeaderboardOption func(*Leaderboard)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) LeaderboardOption {
	return func(l *Leaderboard) { l.now = now }
}

// WithLeaderboardLogger sets the logger for degraded reads.
func WithLeaderboardLogger(logger *slog.Logger) LeaderboardOption {
	return func(l *Leaderboard) { l.logger = logger }
}

func NewLeaderboard(kv KV, opts ...LeaderboardOption) *Leaderboard {
	l := &Leaderboard{kv: kv, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NormalizeRegion upper-cases and validates a region code.
func NormalizeRegion(region string) (string, error) {
	r := strings.ToUpper(strings.TrimSpace(region))
	if len(r) != 2 || r[0] < 'A' || r[0] > 'Z' || r[1] < 'A' || r[1] > 'Z' {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegion, region)
	}
	return r, nil
}

// Submit records score for region when it is at least the stored score
// (a missing region always accepts). It reports whether the entry was written.
func (l *Leaderboard) Submit(region string, score int) (bool, error) {
	code, err := NormalizeRegion(region)
	if err != nil {
		return false, err
	}
	if score < 0 {
		return false, ErrInvalidScore
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.load()
	if prev, ok := entries[code]; ok && score < prev.Score {
		return false, nil
	}
	entries[code] = Entry{Score: score, Updated: l.now().UnixMilli()}

	if err := l.save(entries); err != nil {
		return false, err
	}
	return true, nil
}

// List returns all entries, highest score first.
func (l *Leaderboard) List() []Ranked {
	l.mu.Lock()
	defer l.mu.Unlock()
	return rank(l.load())
}

// Get returns the entry for one region.
func (l *Leaderboard) Get(region string) (Entry, bool) {
	code, err := NormalizeRegion(region)
	if err != nil {
		return Entry{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.load()[code]
	return e, ok
}

func (l *Leaderboard) load() map[string]Entry {
	entries := make(map[string]Entry)
	raw, err := l.kv.Get(LeaderboardKey)
	if errors.Is(err, ErrNotFound) {
		return entries
	}
	if err != nil {
		l.logger.Warn("leaderboard unreadable, starting empty", "err", err)
		return entries
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		l.logger.Warn("leaderboard corrupt, starting empty", "err", err)
		return make(map[string]Entry)
	}
	return entries
}

func (l *Leaderboard) save(entries map[string]Entry) error {
	if len(entries) > MaxLeaderboardEntries {
		top := rank(entries)[:MaxLeaderboardEntries]
		entries = make(map[string]Entry, len(top))
		for _, r := range top {
			entries[r.Region] = Entry{Score: r.Score, Updated: r.Updated}
		}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := l.kv.Put(LeaderboardKey, raw); err != nil {
		return fmt.Errorf("save leaderboard: %w", err)
	}
	return nil
}

// rank orders by score descending; equal scores keep region order so the
// result does not depend on map iteration.
func rank(entries map[string]Entry) []Ranked {
	out := make([]Ranked, 0, len(entries))
	for code, e := range entries {
		out = append(out, Ranked{Region: code, Score: e.Score, Updated: e.Updated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
