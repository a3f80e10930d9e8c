// Package mastertable implements MasterTableBuilder: it orchestrates
// SharedFeatureContext over the full game corpus to produce the master wide
// training CSV, with full, incremental, and date-range-regeneration modes.
package mastertable

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/ai-atl/hoopcast/internal/features"
	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/sharedctx"
	"github.com/ai-atl/hoopcast/internal/store"
)

// metaColumns and targetColumns bracket the feature columns in the stable
// master CSV column order: meta columns first, then features, then targets.
var metaColumns = []string{"Year", "Month", "Day", "Home", "Away", "game_id"}
var targetColumns = []string{"HomeWon", "home_points", "away_points"}

// Builder orchestrates full, incremental, and date-range master-table
// generation over a preloaded SharedFeatureContext.
type Builder struct {
	cfg *leagueconfig.Config
	gameStore *store.GameStore
	metaStore *store.MasterMetaStore
	workerCount int
	log *logrus.Entry
}

func NewBuilder(cfg *leagueconfig.Config, gameStore *store.GameStore, metaStore *store.MasterMetaStore, workerCount int) *Builder {
	if workerCount <= 0 {
		workerCount = 8
	}
	return &Builder{
		cfg: cfg,
		gameStore: gameStore,
		metaStore: metaStore,
		workerCount: workerCount,
		log: logrus.WithField("component", "mastertable"),
	}
}

func (b *Builder) csvPath() string {
	return filepath.Join(b.cfg.MasterCSVRoot, "master.csv")
}

type rowResult struct {
	row models.MasterRow
	err error
}

// FullGeneration iterates every completed, non-excluded game in the corpus,
// computes features over a bounded worker pool holding sctx read-only, and
// streams a fresh master CSV plus metadata document. noPlayer, if true,
// omits player_*/inj_* columns entirely.
func (b *Builder) FullGeneration(ctx context.Context, sctx *sharedctx.Context, games []models.Game, noPlayer bool) error {
	catalog := features.DefaultCatalog()
	if noPlayer {
		catalog = withoutPlayerFeatures(catalog)
	}

	eligible := make([]models.Game, 0, len(games))
	for _, g := range games {
		if g.Completed() && !b.cfg.ExcludesGameType(string(g.GameType)) {
			eligible = append(eligible, g)
		}
	}

	rows, err := b.computeRows(ctx, sctx, eligible, catalog)
	if err != nil {
		return err
	}

	sort.Slice(rows, func(i, j int) bool { return rowLess(rows[i], rows[j]) })

	if err := writeMasterCSV(b.csvPath(), catalog, rows); err != nil {
		return err
	}

	meta := &models.MasterMetadata{
		League: b.cfg.League,
		CSVPath: b.csvPath(),
		FeatureColumns: catalog,
		FeatureCount: len(catalog),
		LastDateUpdated: maxDate(eligible),
		NoPlayer: noPlayer,
		RowCount: len(rows),
	}
	return b.metaStore.Upsert(ctx, meta)
}

// IncrementalUpdate processes only games in (startExclusive, endInclusive],
// aligns new rows to the existing header (zero-filling missing columns),
// appends, de-duplicates on metadata keys, sorts, and advances
// last_date_updated monotonically.
func (b *Builder) IncrementalUpdate(ctx context.Context, sctx *sharedctx.Context, games []models.Game, startExclusive, endInclusive time.Time) error {
	meta, err := b.metaStore.Get(ctx, b.cfg.League)
	if err != nil {
		return modelerrors.DataMissing("mastertable: no existing master metadata for incremental update")
	}

	var window []models.Game
	for _, g := range games {
		if !g.Completed() || b.cfg.ExcludesGameType(string(g.GameType)) {
			continue
		}
		if g.Date.After(startExclusive) && !g.Date.After(endInclusive) {
			window = append(window, g)
		}
	}
	if len(window) == 0 {
		return nil
	}

	newRows, err := b.computeRows(ctx, sctx, window, meta.FeatureColumns)
	if err != nil {
		return err
	}

	existingRows, err := readMasterCSV(meta.CSVPath, meta.FeatureColumns)
	if err != nil {
		return err
	}

	merged := dedupeByKey(append(existingRows, newRows...))
	sort.Slice(merged, func(i, j int) bool { return rowLess(merged[i], merged[j]) })

	if err := writeMasterCSV(meta.CSVPath, meta.FeatureColumns, merged); err != nil {
		return err
	}

	if endInclusive.After(meta.LastDateUpdated) {
		meta.LastDateUpdated = endInclusive
	}
	meta.RowCount = len(merged)
	return b.metaStore.Upsert(ctx, meta)
}

// DateRangeRegeneration removes existing master rows within [start, end],
// recomputes them against the existing feature-column set, and
// re-inserts in sorted order. New columns added by the current feature
// catalog require FullGeneration instead.
func (b *Builder) DateRangeRegeneration(ctx context.Context, sctx *sharedctx.Context, games []models.Game, start, end time.Time) error {
	meta, err := b.metaStore.Get(ctx, b.cfg.League)
	if err != nil {
		return modelerrors.DataMissing("mastertable: no existing master metadata for date-range regeneration")
	}

	existingRows, err := readMasterCSV(meta.CSVPath, meta.FeatureColumns)
	if err != nil {
		return err
	}

	kept := existingRows[:0:0]
	for _, r := range existingRows {
		d := time.Date(r.Year, time.Month(r.Month), r.Day, 0, 0, 0, 0, time.UTC)
		if d.Before(start) || d.After(end) {
			kept = append(kept, r)
		}
	}

	var window []models.Game
	for _, g := range games {
		if !g.Completed() || b.cfg.ExcludesGameType(string(g.GameType)) {
			continue
		}
		if !g.Date.Before(start) && !g.Date.After(end) {
			window = append(window, g)
		}
	}

	recomputed, err := b.computeRows(ctx, sctx, window, meta.FeatureColumns)
	if err != nil {
		return err
	}

	merged := append(kept, recomputed...)
	sort.Slice(merged, func(i, j int) bool { return rowLess(merged[i], merged[j]) })

	if err := writeMasterCSV(meta.CSVPath, meta.FeatureColumns, merged); err != nil {
		return err
	}
	meta.RowCount = len(merged)
	return b.metaStore.Upsert(ctx, meta)
}

// computeRows fans games out across a bounded worker pool, each worker
// calling into sctx (read-only from the pool's perspective: only its
// internal caches are mutex-protected).
func (b *Builder) computeRows(ctx context.Context, sctx *sharedctx.Context, games []models.Game, catalog []string) ([]models.MasterRow, error) {
	results := make([]rowResult, len(games))

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(b.workerCount, func(i interface{}) {
			defer wg.Done()
			idx := i.(int)
			g := games[idx]
			feats, err := sctx.CalculateFeaturesForRow(ctx, catalog, g.Home, g.Away, g.Season, g.Date, g.GameID, g.VenueGUID)
			if err != nil {
				results[idx] = rowResult{err: fmt.Errorf("mastertable: row %s: %w", g.GameID, err)}
				return
			}
			results[idx] = rowResult{row: toMasterRow(g, feats)}
		})
	if err != nil {
		return nil, fmt.Errorf("mastertable: worker pool: %w", err)
	}
	defer pool.Release()

	for i := range games {
		wg.Add(1)
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			return nil, fmt.Errorf("mastertable: dispatch row %d: %w", i, err)
		}
	}
	wg.Wait()

	rows := make([]models.MasterRow, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		rows = append(rows, r.row)
	}
	return rows, nil
}

func toMasterRow(g models.Game, feats map[string]float64) models.MasterRow {
	homeWon := false
	if g.HomeWon != nil {
		homeWon = *g.HomeWon
	} else if g.HomePoints != nil && g.AwayPoints != nil {
		homeWon = *g.HomePoints > *g.AwayPoints
	}
	row := models.MasterRow{
		Year: g.Date.Year(), Month: int(g.Date.Month()), Day: g.Date.Day(),
		Home: g.Home, Away: g.Away, GameID: g.GameID,
		Features: feats,
		HomeWon: homeWon,
	}
	if g.HomePoints != nil {
		row.HomePoints = *g.HomePoints
	}
	if g.AwayPoints != nil {
		row.AwayPoints = *g.AwayPoints
	}
	return row
}

func rowLess(a, b models.MasterRow) bool {
	ak, bk := a.Key(), b.Key()
	for i := range ak {
		if ak[i] != bk[i] {
			return ak[i] < bk[i]
		}
	}
	return false
}

func dedupeByKey(rows []models.MasterRow) []models.MasterRow {
	seen := map[[5]string]models.MasterRow{}
	order := make([][5]string, 0, len(rows))
	for _, r := range rows {
		k := r.Key()
		if _, ok := seen[k]; !ok {
			order = append(order, k)
		}
		seen[k] = r // later (newer) rows win
	}
	out := make([]models.MasterRow, 0, len(order))
	for _, k := range order {
		out = append(out, seen[k])
	}
	return out
}

func maxDate(games []models.Game) time.Time {
	var max time.Time
	for _, g := range games {
		if g.Date.After(max) {
			max = g.Date
		}
	}
	return max
}

func withoutPlayerFeatures(catalog []string) []string {
	out := make([]string, 0, len(catalog))
	for _, k := range catalog {
		if hasPlayerOrInjuryPrefix(k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

func hasPlayerOrInjuryPrefix(k string) bool {
	for _, p := range []string{"player_", "inj_"} {
		if len(k) >= len(p) && k[:len(p)] == p {
			return true
		}
	}
	return false
}

func writeMasterCSV(path string, featureColumns []string, rows []models.MasterRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mastertable: mkdir: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("mastertable: create csv: %w", err)
	}
	w := csv.NewWriter(f)

	header := append(append(append([]string{}, metaColumns...), featureColumns...), targetColumns...)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	for _, r := range rows {
		record := make([]string, 0, len(header))
		record = append(record,
			strconv.Itoa(r.Year), strconv.Itoa(r.Month), strconv.Itoa(r.Day), r.Home, r.Away, r.GameID)
		for _, col := range featureColumns {
			v := r.Features[col]
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		record = append(record,
			strconv.FormatBool(r.HomeWon), strconv.Itoa(r.HomePoints), strconv.Itoa(r.AwayPoints))
		if err := w.Write(record); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Master CSV writes go through a temp file and an atomic rename.
	return os.Rename(tmpPath, path)
}

func readMasterCSV(path string, featureColumns []string) ([]models.MasterRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, modelerrors.DataMissing("mastertable: master csv absent: " + path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("mastertable: read header: %w", err)
	}
	colIndex := map[string]int{}
	for i, h := range header {
		colIndex[h] = i
	}

	var rows []models.MasterRow
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		row := models.MasterRow{
			Year: atoi(record[colIndex["Year"]]), Month: atoi(record[colIndex["Month"]]), Day: atoi(record[colIndex["Day"]]),
			Home: record[colIndex["Home"]], Away: record[colIndex["Away"]], GameID: record[colIndex["game_id"]],
			Features: map[string]float64{},
		}
		for _, col := range featureColumns {
			idx, ok := colIndex[col]
			if !ok {
				continue
			}
			row.Features[col] = atof(record[idx])
		}
		if idx, ok := colIndex["HomeWon"]; ok {
			row.HomeWon = record[idx] == "true"
		}
		if idx, ok := colIndex["home_points"]; ok {
			row.HomePoints = atoi(record[idx])
		}
		if idx, ok := colIndex["away_points"]; ok {
			row.AwayPoints = atoi(record[idx])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
