package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ai-atl/hoopcast/internal/dataset"
	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/sharedctx"
	"github.com/ai-atl/hoopcast/internal/stacking"
	"github.com/ai-atl/hoopcast/internal/store"
)

// PredictionService resolves the selected ensemble and runs it over a
// single game's feature vector, persisting the resulting prediction.
type PredictionService struct {
	cfg *leagueconfig.Config
	games *store.GameStore
	classifiers *store.ClassifierConfigStore
	predictions *store.PredictionStore
	scenarios *store.ScenarioStore
	datasetBuilder *dataset.Builder
	featureCtx *sharedctx.Context
}

func NewPredictionService(cfg *leagueconfig.Config, games *store.GameStore, classifiers *store.ClassifierConfigStore,
	predictions *store.PredictionStore, scenarios *store.ScenarioStore, datasetBuilder *dataset.Builder, featureCtx *sharedctx.Context) *PredictionService {
	return &PredictionService{
		cfg: cfg, games: games, classifiers: classifiers, predictions: predictions,
		scenarios: scenarios, datasetBuilder: datasetBuilder, featureCtx: featureCtx,
	}
}

// LoadSelectedEnsemble resolves the platform's currently selected classifier
// config into a ready-to-score ensemble; it is the EnsembleLoader the
// Model-Inspector and Experimenter tools are bound against.
func (p *PredictionService) LoadSelectedEnsemble(ctx context.Context) (*stacking.Ensemble, error) {
	selected, err := p.classifiers.Selected(ctx)
	if err != nil {
		return nil, modelerrors.DataMissing("services: no selected classifier config: %v", err)
	}
	if !selected.Ensemble {
		return nil, modelerrors.Config("services: selected classifier config %s is not an ensemble", selected.ConfigID)
	}
	return stacking.LoadEnsemble(ctx, p.cfg, p.datasetBuilder, p.classifiers, selected)
}

// Predict assembles gameID's feature vector through the same feature
// catalog training uses, scores it with the selected ensemble, and upserts
// the resulting PredictionDoc. If reason is non-empty, a
// PredictionScenarioSnapshot is also persisted, the path the Experimenter's
// predict() tool and roster what-ifs use.
func (p *PredictionService) Predict(ctx context.Context, gameID, reason string) (*models.PredictionDoc, error) {
	game, err := p.games.Get(ctx, gameID)
	if err != nil {
		return nil, modelerrors.DataMissing("services: game %s not found: %v", gameID, err)
	}

	ensemble, err := p.LoadSelectedEnsemble(ctx)
	if err != nil {
		return nil, err
	}

	featureNames := ensemble.BaseFeatureNames()
	features, err := p.featureCtx.CalculateFeaturesForRow(ctx, featureNames, game.Home, game.Away, game.Season, game.Date, game.GameID, game.VenueGUID)
	if err != nil {
		return nil, modelerrors.Feature("services: assemble feature vector for game %s: %v", gameID, err)
	}

	pHome := ensemble.Predict(features)
	winner := game.Away
	if pHome >= 0.5 {
		winner = game.Home
	}

	doc := &models.PredictionDoc{
		GameID: gameID,
		EnsembleConfigID: ensemble.ConfigID,
		HomeWinProb: pHome,
		AwayWinProb: 1 - pHome,
		PredictedWinner: winner,
		FeaturesDict: features,
		UpdatedAt: time.Now(),
	}
	if err := p.predictions.Upsert(ctx, doc); err != nil {
		return nil, modelerrors.Run(err, "services: upsert prediction for game %s", gameID)
	}

	if reason != "" {
		snapshot := &models.PredictionScenarioSnapshot{
			SnapshotID: "snap_" + uuid.NewString(),
			GameID: gameID,
			Prediction: *doc,
			Reason: reason,
			CreatedAt: time.Now(),
		}
		if err := p.scenarios.Insert(ctx, snapshot); err != nil {
			return nil, modelerrors.Run(err, "services: persist scenario snapshot for game %s", gameID)
		}
	}

	return doc, nil
}
