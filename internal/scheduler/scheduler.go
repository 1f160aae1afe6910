package scheduler

import (
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"
	"pharmacare_backend/internal/services"
	"pharmacare_backend/pkg/utils"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the recurring maintenance jobs: the daily expiry sweep and
// the low-stock report.
type Scheduler struct {
	cron          *cron.Cron
	batchService  services.BatchService
	inventoryRepo repositories.InventoryRepository
}

// New creates a Scheduler with the default job schedule.
func New(batchService services.BatchService, inventoryRepo repositories.InventoryRepository) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		batchService:  batchService,
		inventoryRepo: inventoryRepo,
	}
}

// Start registers the jobs and starts the cron loop. The expiry sweep also
// runs once immediately so a restart never leaves stale active batches behind.
func (s *Scheduler) Start() error {
	expirySpec := utils.Getenv("EXPIRY_SWEEP_SCHEDULE", "5 0 * * *")
	if _, err := s.cron.AddFunc(expirySpec, s.runExpirySweep); err != nil {
		return err
	}

	lowStockSpec := utils.Getenv("LOW_STOCK_REPORT_SCHEDULE", "0 8 * * *")
	if _, err := s.cron.AddFunc(lowStockSpec, s.runLowStockReport); err != nil {
		return err
	}

	s.cron.Start()
	go s.runExpirySweep()

	log.Info().Str("expiry_sweep", expirySpec).Str("low_stock_report", lowStockSpec).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runExpirySweep() {
	count, err := s.batchService.ExpireBatches(time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Expiry sweep failed")
		return
	}
	if count > 0 {
		log.Info().Int64("batches_expired", count).Msg("Expiry sweep completed")
	} else {
		log.Debug().Msg("Expiry sweep completed, nothing to expire")
	}
}

func (s *Scheduler) runLowStockReport() {
	lots, total, err := s.inventoryRepo.GetLots(models.LotFilters{LowStock: true, Page: 1, PageSize: 100})
	if err != nil {
		log.Error().Err(err).Msg("Low stock report failed")
		return
	}
	if total == 0 {
		log.Info().Msg("Low stock report: all lots above reorder level")
		return
	}
	for _, lot := range lots {
		productName := ""
		if lot.Product != nil {
			productName = lot.Product.Name
		}
		log.Warn().
			Str("product", productName).
			Str("batch_label", lot.BatchLabel).
			Int("quantity", lot.Quantity).
			Int("reorder_level", lot.ReorderLevel).
			Msg("Lot at or below reorder level")
	}
	log.Info().Int("low_stock_lots", total).Msg("Low stock report completed")
}
