package jobs

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/cache"
	"github.com/nexconsult/simples-batch/internal/config"
	"github.com/nexconsult/simples-batch/internal/engine"
	"github.com/nexconsult/simples-batch/internal/models"
	"github.com/nexconsult/simples-batch/internal/provider"
)

// NewEngineFactory monta o engine de produção para um job: cadeia de
// provedores, pacer com base no delaySeconds do job e resolver sobre o
// cache compartilhado. O breaker é compartilhado entre jobs para que o
// cooldown de um provedor instável valha para jobs concorrentes.
func NewEngineFactory(cfg *config.Config, store cache.Store, logger *logrus.Logger) EngineFactory {
	breaker := provider.NewBreaker()

	return func(req models.Request) *engine.Engine {
		chain := provider.Chain(cfg.Providers)
		pacer := provider.NewPacer(time.Duration(req.DelaySeconds*float64(time.Second)), cfg.Providers.FloorInterval)
		for _, prov := range chain {
			pacer.Register(prov.Name, prov.Weight)
		}
		resolver := provider.NewResolver(chain, pacer, breaker,
			cfg.Providers.RequestTimeout, cfg.Providers.MaxRetries, logger)

		return engine.New(store, resolver, logger)
	}
}
