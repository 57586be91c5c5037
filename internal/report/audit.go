package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditConfig holds configuration for the audit service.
type AuditConfig struct {
	// DataRetentionDays is how many days of bookings to keep after export.
	DataRetentionDays int
	// ExportOnStart runs an export immediately on service start.
	ExportOnStart bool
	// OutputDir is where monthly workbooks are written.
	OutputDir string
}

// DefaultAuditConfig returns sensible defaults.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		DataRetentionDays: 365,
		OutputDir:         "reports",
	}
}

// TableExporter provides access to database tables for export.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// DataCleaner deletes bookings past the retention window.
type DataCleaner interface {
	DeleteBookingsOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

// AuditService writes a monthly workbook with a sheet per table, then trims
// bookings past the retention window.
type AuditService struct {
	config   *AuditConfig
	exporter TableExporter
	writer   func() ExcelWriter // factory for creating new Excel writers
	cleaner  DataCleaner
	logger   *zerolog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewAuditService creates a new audit service.
func NewAuditService(
	config *AuditConfig,
	exporter TableExporter,
	writerFactory func() ExcelWriter,
	cleaner DataCleaner,
	logger *zerolog.Logger,
) *AuditService {
	if config == nil {
		config = DefaultAuditConfig()
	}
	if config.DataRetentionDays <= 0 {
		config.DataRetentionDays = 365
	}
	if config.OutputDir == "" {
		config.OutputDir = "reports"
	}

	return &AuditService{
		config:   config,
		exporter: exporter,
		writer:   writerFactory,
		cleaner:  cleaner,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the audit scheduler.
func (s *AuditService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		go s.RunExportAndCleanup()
	}

	s.wg.Add(1)
	go s.loop()

	if s.logger != nil {
		s.logger.Info().Int("retention_days", s.config.DataRetentionDays).
			Msg("Audit service started")
	}
}

// Stop gracefully stops the audit service.
func (s *AuditService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	if s.logger != nil {
		s.logger.Info().Msg("Audit service stopped")
	}
}

func (s *AuditService) loop() {
	defer s.wg.Done()

	nextRun := s.nextFirstOfMonth()
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	if s.logger != nil {
		s.logger.Info().Time("time", nextRun).Msg("Next audit scheduled")
	}

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.RunExportAndCleanup()

			nextRun = s.nextFirstOfMonth()
			timer.Reset(time.Until(nextRun))

			if s.logger != nil {
				s.logger.Info().Time("time", nextRun).Msg("Next audit scheduled")
			}
		}
	}
}

func (s *AuditService) nextFirstOfMonth() time.Time {
	now := time.Now()
	// First day of next month at 00:01
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

// RunExportAndCleanup performs the export and cleanup immediately.
func (s *AuditService) RunExportAndCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := s.exportData(ctx); err != nil {
		if s.logger != nil {
			s.logger.Error().Err(err).Msg("Failed to export audit data")
		}
	}

	if err := s.cleanupOldData(ctx); err != nil {
		if s.logger != nil {
			s.logger.Error().Err(err).Msg("Failed to cleanup old data")
		}
	}
}

func (s *AuditService) exportData(ctx context.Context) error {
	if s.exporter == nil || s.writer == nil {
		return fmt.Errorf("exporter or writer not configured")
	}

	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}
	if len(tables) == 0 {
		if s.logger != nil {
			s.logger.Info().Msg("No tables to export")
		}
		return nil
	}

	excel := s.writer()
	if excel == nil {
		return fmt.Errorf("failed to create excel writer")
	}

	for _, tableName := range tables {
		data, columns, err := s.exporter.GetTableData(ctx, tableName)
		if err != nil {
			if s.logger != nil {
				s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to get table data")
			}
			continue
		}

		if err := excel.AddSheet(tableName); err != nil {
			if s.logger != nil {
				s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to add sheet")
			}
			continue
		}
		if err := excel.WriteHeader(columns); err != nil {
			if s.logger != nil {
				s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to write header")
			}
			continue
		}

		for _, row := range data {
			rowData := make([]interface{}, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := excel.WriteRow(rowData); err != nil {
				if s.logger != nil {
					s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to write row")
				}
			}
		}

		if s.logger != nil {
			s.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("Exported table")
		}
	}

	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(s.config.OutputDir, auditFilenameForPreviousMonth())
	if err := excel.SaveToFile(path); err != nil {
		return fmt.Errorf("save audit workbook: %w", err)
	}

	if s.logger != nil {
		s.logger.Info().Str("path", path).Msg("Audit report written")
	}
	return nil
}

func (s *AuditService) cleanupOldData(ctx context.Context) error {
	if s.cleaner == nil {
		return nil
	}

	retention := time.Duration(s.config.DataRetentionDays) * 24 * time.Hour
	deleted, err := s.cleaner.DeleteBookingsOlderThan(ctx, retention)
	if err != nil {
		return fmt.Errorf("delete old bookings: %w", err)
	}

	if s.logger != nil {
		s.logger.Info().Int64("deleted_count", deleted).
			Int("retention_days", s.config.DataRetentionDays).
			Msg("Cleaned up old data")
	}
	return nil
}

// ExportNow triggers an immediate export (useful for testing or manual runs).
func (s *AuditService) ExportNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	return s.exportData(ctx)
}

func auditFilenameForPreviousMonth() string {
	prev := time.Now().AddDate(0, -1, 0)
	return fmt.Sprintf("audit_%04d-%02d.xlsx", prev.Year(), prev.Month())
}
