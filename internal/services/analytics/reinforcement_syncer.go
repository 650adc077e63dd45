package analytics

import (
	"context"
	"fmt"

	"FusionRisk/internal/domain/models"
	domsvc "FusionRisk/internal/domain/service"
	"FusionRisk/pkg/config"
)

// HTTPReinforcementSyncer delivers corrective actions to the reinforcement endpoint.
type HTTPReinforcementSyncer struct{ base *HTTPServiceBase }

func NewHTTPReinforcementSyncer(cfg *config.Config) *HTTPReinforcementSyncer {
	return &HTTPReinforcementSyncer{
		base: NewHTTPServiceBase(cfg.Reinforcement.URL, cfg.Auth.InternalToken, cfg.Reinforcement.Timeout),
	}
}

func (s *HTTPReinforcementSyncer) Sync(ctx context.Context, req models.SyncRequest) error {
	if err := s.base.PostJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("reinforcement sync %s/%s: %w", req.EventType, req.Recommendation, err)
	}
	return nil
}

var _ domsvc.ReinforcementSyncer = (*HTTPReinforcementSyncer)(nil)
