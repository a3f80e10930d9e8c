// Package dataset implements DatasetBuilder: projects a cached subset
// of master columns plus temporal filters into a hashed dataset artifact.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/store"
)

// Builder resolves a DatasetSpec against the master CSV and the cached
// point-prediction store, writing a cached CSV+sidecar artifact per hash.
type Builder struct {
	cfg *leagueconfig.Config
	metaStore *store.MasterMetaStore
	pointPredict *store.PointPredictionCacheStore
}

func NewBuilder(cfg *leagueconfig.Config, metaStore *store.MasterMetaStore, pointPredict *store.PointPredictionCacheStore) *Builder {
	return &Builder{cfg: cfg, metaStore: metaStore, pointPredict: pointPredict}
}

// Result is the public shape of build_dataset's return value.
type Result struct {
	DatasetID string
	CSVPath string
	Schema []string
	RowCount int
	FeatureCount int
	DroppedFeatures []string
	Cached bool
}

func (b *Builder) artifactDir() string {
	return filepath.Join(b.cfg.ArtifactRoot, "datasets")
}

// BuildDataset hashes spec into a dataset ID, returns the cached CSV if one
// already exists under that ID, and otherwise resolves the requested
// columns against the master table, applies temporal and min-games filters,
// optionally joins a points model's predicted margin, and writes the
// resulting CSV plus its sidecar metadata.
func (b *Builder) BuildDataset(ctx context.Context, spec models.DatasetSpec) (*Result, error) {
	datasetID, err := DatasetID(spec)
	if err != nil {
		return nil, modelerrors.ConfigWrap(err, "dataset: hash spec")
	}

	if cached, err := b.metaStore.DatasetByID(ctx, datasetID); err == nil && cached.RowCount > 0 {
		if _, statErr := os.Stat(cached.CSVPath); statErr == nil {
			return &Result{
				DatasetID: cached.DatasetID, CSVPath: cached.CSVPath, Schema: cached.Schema,
				RowCount: cached.RowCount, FeatureCount: cached.FeatureCount,
				DroppedFeatures: cached.DroppedFeatures, Cached: true,
			}, nil
		}
	}

	meta, err := b.metaStore.Get(ctx, spec.League)
	if err != nil {
		return nil, modelerrors.DataMissing("dataset: master table not found for league " + spec.League)
	}

	requested, err := resolveRequestedColumns(spec)
	if err != nil {
		return nil, err
	}
	requested = dedupeStrings(append(requested, expandFeatureBlocks(spec.FeatureBlocks, meta.FeatureColumns)...))

	available := map[string]bool{}
	for _, c := range meta.FeatureColumns {
		available[c] = true
	}
	var resolved, dropped []string
	for _, c := range requested {
		if available[c] {
			resolved = append(resolved, c)
		} else {
			dropped = append(dropped, c)
		}
	}
	if len(resolved) == 0 {
		return nil, modelerrors.Config(fmt.Sprintf("dataset: zero available features after resolution; known blocks: %v", KnownBlocks()))
	}

	// Preserve the master's column order, not the request order, so
	// feature alignment is stable across builds.
	resolved = inMasterOrder(meta.FeatureColumns, resolved)

	rows, err := readMasterRows(meta.CSVPath, resolved)
	if err != nil {
		return nil, err
	}

	rows = applyTemporalFilters(rows, b.cfg, spec)
	if spec.MinGamesPlayed > 0 {
		rows = applyMinGamesFilter(rows, b.cfg, spec.MinGamesPlayed)
	}

	schema := append(append([]string{"Year", "Month", "Day", "Home", "Away", "game_id"}, resolved...), "HomeWon", "home_points", "away_points")
	if spec.PointModelID != "" {
		rows, err = b.joinPredMargin(ctx, rows, spec.PointModelID)
		if err != nil {
			return nil, err
		}
		schema = append(schema, "pred_margin")
	}

	csvPath := filepath.Join(b.artifactDir(), datasetID+".csv")
	if err := writeDatasetCSV(csvPath, schema, resolved, rows, spec.PointModelID != ""); err != nil {
		return nil, err
	}

	specJSON, err := specToMap(spec)
	if err != nil {
		return nil, err
	}
	artifact := &models.DatasetArtifact{
		DatasetID: datasetID, CSVPath: csvPath, Schema: schema,
		RowCount: len(rows), FeatureCount: len(resolved), DroppedFeatures: dropped,
		Spec: specJSON,
	}
	if err := b.metaStore.UpsertDataset(ctx, artifact); err != nil {
		return nil, err
	}

	return &Result{
		DatasetID: datasetID, CSVPath: csvPath, Schema: schema,
		RowCount: len(rows), FeatureCount: len(resolved), DroppedFeatures: dropped, Cached: false,
	}, nil
}

func resolveRequestedColumns(spec models.DatasetSpec) ([]string, error) {
	if len(spec.IndividualFeatures) == 0 && len(spec.FeatureBlocks) == 0 {
		return nil, modelerrors.Config("dataset: spec has neither individual_features nor feature_blocks")
	}
	seen := map[string]bool{}
	var out []string
	for _, f := range spec.IndividualFeatures {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, block := range spec.FeatureBlocks {
		if _, ok := featureBlocks[block]; !ok {
			return nil, modelerrors.Config(fmt.Sprintf("dataset: unknown feature block %q; known: %v", block, KnownBlocks()))
		}
	}
	// Individual features are resolved directly here; feature_blocks are
	// validated by name only — expandFeatureBlocks turns each into its
	// matching master columns once the caller has the master header loaded.
	return out, nil
}

// expandFeatureBlocks resolves each requested block name to every master
// column whose stat-name component belongs to that block, per resolveBlock.
func expandFeatureBlocks(blocks, masterColumns []string) []string {
	if len(blocks) == 0 {
		return nil
	}
	var out []string
	for _, c := range masterColumns {
		for _, block := range blocks {
			if resolveBlock(block, c) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func inMasterOrder(masterColumns, requested []string) []string {
	want := map[string]bool{}
	for _, c := range requested {
		want[c] = true
	}
	out := make([]string, 0, len(requested))
	for _, c := range masterColumns {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}

type datasetRow struct {
	year, month, day int
	home, away, gameID string
	features map[string]float64
	homeWon bool
	homePoints, awayPoints int
	predMargin float64
}

func readMasterRows(csvPath string, columns []string) ([]datasetRow, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, modelerrors.DataMissing("dataset: master csv absent: " + csvPath)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read master header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[h] = i
	}

	var rows []datasetRow
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		row := datasetRow{
			year: atoi(record[idx["Year"]]), month: atoi(record[idx["Month"]]), day: atoi(record[idx["Day"]]),
			home: record[idx["Home"]], away: record[idx["Away"]], gameID: record[idx["game_id"]],
			features: make(map[string]float64, len(columns)),
		}
		for _, c := range columns {
			if i, ok := idx[c]; ok {
				row.features[c] = atof(record[i])
			}
		}
		if i, ok := idx["HomeWon"]; ok {
			row.homeWon = record[i] == "true"
		}
		if i, ok := idx["home_points"]; ok {
			row.homePoints = atoi(record[i])
		}
		if i, ok := idx["away_points"]; ok {
			row.awayPoints = atoi(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func applyTemporalFilters(rows []datasetRow, cfg *leagueconfig.Config, spec models.DatasetSpec) []datasetRow {
	var beginDate, endDate time.Time
	if spec.BeginDate != "" {
		beginDate, _ = time.Parse("2006-01-02", spec.BeginDate)
	}
	if spec.EndDate != "" {
		endDate, _ = time.Parse("2006-01-02", spec.EndDate)
	}

	out := rows[:0:0]
	for _, r := range rows {
		d := time.Date(r.year, time.Month(r.month), r.day, 0, 0, 0, 0, time.UTC)
		season := cfg.SeasonFor(d)
		startYear, err := leagueconfig.SeasonStartYear(season)
		if err != nil {
			continue
		}
		if spec.BeginYear != 0 && startYear < spec.BeginYear {
			continue
		}
		if spec.EndYear != 0 && startYear > spec.EndYear {
			continue
		}
		if !beginDate.IsZero() && d.Before(beginDate) {
			continue
		}
		if !endDate.IsZero() && d.After(endDate) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// applyMinGamesFilter requires both teams to have at least K prior
// same-season completed games before the target game's date.
func applyMinGamesFilter(rows []datasetRow, cfg *leagueconfig.Config, minGames int) []datasetRow {
	sort.Slice(rows, func(i, j int) bool { return dateOf(rows[i]).Before(dateOf(rows[j])) })

	priorCount := map[string]int{}
	keyOf := func(team, season string) string { return team + "|" + season }

	out := rows[:0:0]
	for _, r := range rows {
		season := cfg.SeasonFor(dateOf(r))
		homeKey := keyOf(r.home, season)
		awayKey := keyOf(r.away, season)
		if priorCount[homeKey] >= minGames && priorCount[awayKey] >= minGames {
			out = append(out, r)
		}
		priorCount[homeKey]++
		priorCount[awayKey]++
	}
	return out
}

func dateOf(r datasetRow) time.Time {
	return time.Date(r.year, time.Month(r.month), r.day, 0, 0, 0, 0, time.UTC)
}

func (b *Builder) joinPredMargin(ctx context.Context, rows []datasetRow, modelID string) ([]datasetRow, error) {
	preds, err := b.pointPredict.ForModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	byGame := make(map[string]float64, len(preds))
	for _, p := range preds {
		byGame[p.GameID] = p.PredMargin
	}
	for i := range rows {
		rows[i].predMargin = byGame[rows[i].gameID]
	}
	return rows, nil
}

func writeDatasetCSV(path string, schema, featureColumns []string, rows []datasetRow, hasPredMargin bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(schema); err != nil {
		f.Close()
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.year), strconv.Itoa(r.month), strconv.Itoa(r.day), r.home, r.away, r.gameID,
		}
		for _, c := range featureColumns {
			record = append(record, strconv.FormatFloat(r.features[c], 'f', -1, 64))
		}
		record = append(record, strconv.FormatBool(r.homeWon), strconv.Itoa(r.homePoints), strconv.Itoa(r.awayPoints))
		if hasPredMargin {
			record = append(record, strconv.FormatFloat(r.predMargin, 'f', -1, 64))
		}
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
	return os.Rename(tmp, path)
}

func specToMap(spec models.DatasetSpec) (map[string]any, error) {
	out := map[string]any{
		"individual_features": spec.IndividualFeatures,
		"feature_blocks": spec.FeatureBlocks,
		"begin_year": spec.BeginYear,
		"end_year": spec.EndYear,
		"begin_date": spec.BeginDate,
		"end_date": spec.EndDate,
		"min_games_played": spec.MinGamesPlayed,
		"point_model_id": spec.PointModelID,
		"league": spec.League,
	}
	return out, nil
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
