// Package stacking implements StackingTrainer: composes predictions of
// several compatible base classifiers into a calibrated meta-model, in
// either naive or informed mode.
package stacking

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ai-atl/hoopcast/internal/dataset"
	"github.com/ai-atl/hoopcast/internal/experiment"
	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/store"
)

// Trainer orchestrates the seven steps of section 4.9: resolve bases,
// build the union meta-dataset, assemble naive/informed matrices, fit the
// meta-model, evaluate, and persist.
type Trainer struct {
	cfg *leagueconfig.Config
	datasetBuilder *dataset.Builder
	classifierStore *store.ClassifierConfigStore
	runStore *store.RunStore
}

func NewTrainer(cfg *leagueconfig.Config, builder *dataset.Builder, classifiers *store.ClassifierConfigStore, runs *store.RunStore) *Trainer {
	return &Trainer{cfg: cfg, datasetBuilder: builder, classifierStore: classifiers, runStore: runs}
}

// BaseModelsSummary is one base model's re-evaluated metrics on the same
// evaluation-year subset used to score the meta-model, for apples-to-apples
// comparison.
type BaseModelsSummary struct {
	ConfigID string `json:"config_id"`
	Name string `json:"name"`
	ColumnName string `json:"column_name"`
	Metrics map[string]float64 `json:"metrics"`
}

// resolvedBase is one base config paired with its fitted/loaded model and
// stable, deduplicated meta-matrix column token.
type resolvedBase struct {
	configID string
	name string
	column string
	model *experiment.BaseModel
}

// TrainEnsemble runs the full stacking algorithm for an ensemble config
// (Ensemble=true, >=2 BaseConfigIDs) and returns the completed run.
func (t *Trainer) TrainEnsemble(ctx context.Context, ensembleCfg *models.ClassifierConfig) (*models.ModelRun, error) {
	if !ensembleCfg.Ensemble {
		return nil, modelerrors.Config("stacking: config %s is not marked ensemble=true", ensembleCfg.ConfigID)
	}
	if len(ensembleCfg.BaseConfigIDs) < 2 {
		return nil, modelerrors.Config("stacking: ensemble requires >=2 base configs, got %d", len(ensembleCfg.BaseConfigIDs))
	}

	run := &models.ModelRun{
		RunID: "run_" + uuid.NewString(),
		ConfigID: ensembleCfg.ConfigID,
		Task: models.TaskEnsemble,
		ModelType: ensembleCfg.MetaModelType,
	}
	if err := t.runStore.Create(ctx, run); err != nil {
		return nil, err
	}
	if err := t.runStore.MarkRunning(ctx, run.RunID); err != nil {
		return nil, err
	}

	metrics, diagnostics, artifactDir, runErr := t.train(ctx, run.RunID, ensembleCfg)
	if runErr != nil {
		if modelerrors.Is(runErr, modelerrors.KindConfig) {
			// Configuration errors abort the request immediately; the run
			// is still marked failed so its error is queryable by id.
			_ = t.runStore.Fail(ctx, run.RunID, runErr)
			return nil, runErr
		}
		_ = t.runStore.Fail(ctx, run.RunID, runErr)
		return nil, modelerrors.Run(runErr, "stacking: ensemble run %s failed", run.RunID)
	}
	if err := t.runStore.Complete(ctx, run.RunID, metrics, diagnostics, artifactDir); err != nil {
		return nil, err
	}
	run.Status = models.RunStatusCompleted
	run.Metrics = metrics
	run.Diagnostics = diagnostics
	run.ArtifactDir = artifactDir
	return run, nil
}

func (t *Trainer) train(ctx context.Context, runID string, ensembleCfg *models.ClassifierConfig) (map[string]float64, map[string]any, string, error) {
	baseCfgs := make([]*models.ClassifierConfig, 0, len(ensembleCfg.BaseConfigIDs))
	for _, id := range ensembleCfg.BaseConfigIDs {
		bc, err := t.classifierStore.Get(ctx, id)
		if err != nil {
			return nil, nil, "", modelerrors.DataMissing("stacking: base config %s not found", id)
		}
		baseCfgs = append(baseCfgs, bc)
	}

	// Compatibility rule: every base (and the ensemble itself) must share
	// begin_year, calibration_years, evaluation_year.
	begin, calYears, evalYear := ensembleCfg.Calibration.Temporal()
	for _, bc := range baseCfgs {
		bBegin, bCal, bEval := bc.Calibration.Temporal()
		if bBegin != begin || bEval != evalYear || !sameYearSet(bCal, calYears) {
			return nil, nil, "", modelerrors.Config("stacking: base %s temporal triple (%d,%v,%d) does not match ensemble (%d,%v,%d)",
				bc.ConfigID, bBegin, bCal, bEval, begin, calYears, evalYear)
		}
	}

	resolved, allFeatureNames, err := t.resolveBases(ctx, baseCfgs)
	if err != nil {
		return nil, nil, "", err
	}

	// Union of base features plus any requested meta_features.
	unionFeatures := append([]string(nil), allFeatureNames...)
	for _, mf := range ensembleCfg.MetaFeatures {
		if !containsStr(unionFeatures, mf) {
			unionFeatures = append(unionFeatures, mf)
		}
	}

	minYear := begin
	for _, y := range calYears {
		if y < minYear || minYear == 0 {
			minYear = y
		}
	}
	spec := models.DatasetSpec{
		IndividualFeatures: unionFeatures,
		BeginYear: minYear,
		EndYear: evalYear,
		MinGamesPlayed: ensembleCfg.MinGamesPlayed,
		League: t.cfg.League,
	}
	built, err := t.datasetBuilder.BuildDataset(ctx, spec)
	if err != nil {
		return nil, nil, "", err
	}

	rows, err := readMetaRows(built.CSVPath)
	if err != nil {
		return nil, nil, "", err
	}

	inCal := map[int]bool{}
	for _, y := range calYears {
		inCal[y] = true
	}
	var metaTrain, metaEval []metaRow
	for _, r := range rows {
		switch {
		case r.year == evalYear:
			metaEval = append(metaEval, r)
		case inCal[r.year]:
			metaTrain = append(metaTrain, r)
		}
	}
	if len(metaTrain) == 0 || len(metaEval) == 0 {
		return nil, nil, "", modelerrors.DataMissing("stacking: meta dataset produced an empty calibration/evaluation split (cal=%d, eval=%d)", len(metaTrain), len(metaEval))
	}

	useDisagree := ensembleCfg.UseDisagree
	useConf := ensembleCfg.UseConf
	informed := useDisagree || useConf || len(ensembleCfg.MetaFeatures) > 0

	columnOrder := metaColumnOrder(resolved, informed, useDisagree, useConf, ensembleCfg.MetaFeatures)

	trainX, trainY := assembleMetaMatrix(metaTrain, resolved, columnOrder, informed, useDisagree, useConf, ensembleCfg.MetaFeatures)
	evalX, evalY := assembleMetaMatrix(metaEval, resolved, columnOrder, informed, useDisagree, useConf, ensembleCfg.MetaFeatures)

	meta, err := newMetaModel(ensembleCfg.MetaModelType)
	if err != nil {
		return nil, nil, "", modelerrors.ConfigWrap(err, "stacking: meta-model selection")
	}
	if err := meta.fit(trainX, trainY); err != nil {
		return nil, nil, "", err
	}

	evalProbs := make([]float64, len(evalX))
	for i, row := range evalX {
		evalProbs[i] = meta.predictProba(row)
	}
	metaMetrics := experiment.ClassificationMetrics(evalY, evalProbs)

	baseSummaries := make([]BaseModelsSummary, 0, len(resolved))
	for i, rb := range resolved {
		probs := make([]float64, len(metaEval))
		for j, row := range metaEval {
			probs[j] = rb.model.Predict(projectFeatures(row, rb.model.FeatureNames))
		}
		baseSummaries = append(baseSummaries, BaseModelsSummary{
			ConfigID: baseCfgs[i].ConfigID,
			Name: baseCfgs[i].Name,
			ColumnName: rb.column,
			Metrics: experiment.ClassificationMetrics(evalY, probs),
		})
	}

	artifactDir := filepath.Join(t.cfg.ArtifactRoot, "ensemble_models", runID)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("stacking: mkdir artifact dir: %w", err)
	}
	metaModelPath := filepath.Join(artifactDir, runID+"_meta_model.pkl")
	if err := persistMetaModel(metaModelPath, ensembleCfg.MetaModelType, meta); err != nil {
		return nil, nil, "", err
	}
	ensembleConfigPath := filepath.Join(artifactDir, runID+"_ensemble_config.json")
	ensembleArtifact := map[string]any{
		"base_config_ids": ensembleCfg.BaseConfigIDs,
		"base_columns": columnNamesOf(resolved),
		"meta_model_type": ensembleCfg.MetaModelType,
		"meta_feature_columns": columnOrder,
		"meta_features": ensembleCfg.MetaFeatures,
		"use_disagree": useDisagree,
		"use_conf": useConf,
		"informed": informed,
	}
	if err := writeJSONFile(ensembleConfigPath, ensembleArtifact); err != nil {
		return nil, nil, "", err
	}

	diagnostics := map[string]any{
		"dataset_id": built.DatasetID,
		"meta_train_rows": len(metaTrain),
		"meta_eval_rows": len(metaEval),
		"meta_feature_columns": columnOrder,
		"base_models_summary": baseSummaries,
		"informed": informed,
	}
	return metaMetrics, diagnostics, artifactDir, nil
}

// resolveBases loads each base config's persisted model, preferring the
// saved artifact and falling back to retraining from its training CSV when
// the artifact is absent or incomplete, deterministically naming each
// base's meta-matrix column from its sanitized config name.
func (t *Trainer) resolveBases(ctx context.Context, baseCfgs []*models.ClassifierConfig) ([]resolvedBase, []string, error) {
	loaded := make([]*experiment.BaseModel, len(baseCfgs))

	g, gctx := errgroup.WithContext(ctx)
	for i, bc := range baseCfgs {
		i, bc := i, bc
		g.Go(func() error {
			if bc.ServingPath != "" {
				if m, err := experiment.LoadBaseModel(bc.ServingPath); err == nil {
					loaded[i] = m
					return nil
				}
			}
			m, err := experiment.TrainBaseModel(gctx, bc, t.datasetBuilder, t.cfg.League)
			if err != nil {
				return modelerrors.DataMissing("stacking: base %s has no usable artifact and retraining failed: %v", bc.ConfigID, err)
			}
			loaded[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	deduper := newNameDeduper()
	out := make([]resolvedBase, 0, len(baseCfgs))
	var allFeatures []string
	seen := map[string]bool{}

	for i, bc := range baseCfgs {
		model := loaded[i]
		column := "p_" + deduper.next(SanitizeConfigName(bc.Name))
		out = append(out, resolvedBase{configID: bc.ConfigID, name: bc.Name, column: column, model: model})
		for _, f := range model.FeatureNames {
			if !seen[f] {
				seen[f] = true
				allFeatures = append(allFeatures, f)
			}
		}
	}
	return out, allFeatures, nil
}

func sameYearSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int(nil), a...)
	bs := append([]int(nil), b...)
	sort.Ints(as)
	sort.Ints(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func columnNamesOf(bases []resolvedBase) []string {
	out := make([]string, len(bases))
	for i, b := range bases {
		out[i] = b.column
	}
	return out
}

// metaColumnOrder fixes the meta-matrix's column order: base probabilities
// first, then (in informed mode) disagreement, confidence, and requested
// meta_features, so the matrix's shape is stable across retrains.
func metaColumnOrder(bases []resolvedBase, informed, useDisagree, useConf bool, metaFeatures []string) []string {
	cols := make([]string, 0, len(bases)+len(metaFeatures)+len(bases)*(len(bases)-1)/2)
	for _, b := range bases {
		cols = append(cols, b.column)
	}
	if !informed {
		return cols
	}
	if useDisagree {
		for i := 0; i < len(bases); i++ {
			for j := i + 1; j < len(bases); j++ {
				cols = append(cols, fmt.Sprintf("disagree_%s_%s", bases[i].column, bases[j].column))
			}
		}
	}
	if useConf {
		for _, b := range bases {
			cols = append(cols, "conf_"+b.column)
		}
	}
	cols = append(cols, metaFeatures...)
	return cols
}

// assembleMetaMatrix computes each base model's calibrated probability for
// every row, then assembles the naive or informed meta-matrix in
// columnOrder, replacing any NaN/Inf with 0.
func assembleMetaMatrix(rows []metaRow, bases []resolvedBase, columnOrder []string, informed, useDisagree, useConf bool, metaFeatures []string) ([][]float64, []float64) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		probs := make([]float64, len(bases))
		for bi, b := range bases {
			probs[bi] = b.model.Predict(projectFeatures(row, b.model.FeatureNames))
		}

		values := map[string]float64{}
		for bi, b := range bases {
			values[b.column] = probs[bi]
		}
		if informed {
			if useDisagree {
				for a := 0; a < len(bases); a++ {
					for b := a + 1; b < len(bases); b++ {
						key := fmt.Sprintf("disagree_%s_%s", bases[a].column, bases[b].column)
						values[key] = math.Abs(probs[a] - probs[b])
					}
				}
			}
			if useConf {
				for bi, b := range bases {
					values["conf_"+b.column] = math.Abs(probs[bi] - 0.5)
				}
			}
			for _, mf := range metaFeatures {
				values[mf] = row.cols[mf]
			}
		}

		vec := make([]float64, len(columnOrder))
		for ci, c := range columnOrder {
			v := values[c]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			vec[ci] = v
		}
		X[i] = vec
		y[i] = row.homeWon
	}
	return X, y
}

// projectFeatures builds a base model's input vector from a meta row,
// zero-filling any feature the row's resolved dataset doesn't carry. A base
// whose feature list shares no column at all with the meta dataset is not
// detected; it receives an all-zero vector.
func projectFeatures(row metaRow, featureNames []string) []float64 {
	out := make([]float64, len(featureNames))
	for i, name := range featureNames {
		out[i] = row.cols[name]
	}
	return out
}

// metaRow is one resolved meta-dataset row: metadata plus every requested
// feature/meta-feature column, keyed by name rather than fixed position
// since different base models project different subsets of it.
type metaRow struct {
	gameID string
	year int
	homeWon float64
	cols map[string]float64
}

func readMetaRows(csvPath string) ([]metaRow, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, modelerrors.DataMissing("stacking: meta dataset csv absent: %s", csvPath)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("stacking: read meta dataset header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[h] = i
	}
	skip := map[string]bool{"Year": true, "Month": true, "Day": true, "Home": true, "Away": true,
		"game_id": true, "HomeWon": true, "home_points": true, "away_points": true}

	var rows []metaRow
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		row := metaRow{
			gameID: record[idx["game_id"]],
			year: atoiSafe(record[idx["Year"]]),
			homeWon: boolStrToFloat(record[idx["HomeWon"]]),
			cols: make(map[string]float64, len(header)),
		}
		for name, i := range idx {
			if skip[name] {
				continue
			}
			row.cols[name] = atofSafe(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func atoiSafe(s string) int {
	var v int
	fmt.Sscanf(s, "%d", &v)
	return v
}

func atofSafe(s string) float64 {
	var v float64
	fmt.Sscanf(s, "%g", &v)
	return v
}

func boolStrToFloat(s string) float64 {
	if s == "true" || s == "1" {
		return 1
	}
	return 0
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
