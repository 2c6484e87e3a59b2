// Package app wires configuration, storage, services and transports together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"health-records/internal/config"
	"health-records/internal/database"
	"health-records/internal/handler"
	"health-records/internal/httpapi"
	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/repository"
	"health-records/internal/service"
	"health-records/pkg/telegram"
)

type App struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *gorm.DB
	Services httpapi.Services
}

// New opens the database and builds every service.
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	recordColumns, employeeColumns, err := Columns(cfg.ImportAliasesFile)
	if err != nil {
		return nil, err
	}

	logger.WithField("driver", cfg.DatabaseDriver).Info("Opening database")
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	services, err := Build(db, recordColumns, employeeColumns, logger)
	if err != nil {
		closeDB(db, logger)
		return nil, err
	}

	return &App{cfg: cfg, logger: logger, db: db, Services: services}, nil
}

// Columns returns the record and employee column specs with the aliases from
// path applied. An empty path keeps the built-in aliases.
func Columns(path string) ([]importer.ColumnSpec, []importer.ColumnSpec, error) {
	records := importer.DefaultRecordColumns()
	employees := importer.DefaultEmployeeColumns()
	if path == "" {
		return records, employees, nil
	}

	overrides, err := importer.LoadAliasOverrides(path)
	if err != nil {
		return nil, nil, err
	}
	if records, err = importer.ApplyOverrides(records, overrides.Records); err != nil {
		return nil, nil, fmt.Errorf("records aliases: %w", err)
	}
	if employees, err = importer.ApplyOverrides(employees, overrides.Employees); err != nil {
		return nil, nil, fmt.Errorf("employees aliases: %w", err)
	}
	return records, employees, nil
}

// Build creates the repositories (migrating their tables) and the services on db.
func Build(db *gorm.DB, recordColumns, employeeColumns []importer.ColumnSpec, logger *logrus.Logger) (httpapi.Services, error) {
	departments, err := repository.NewDepartmentRepository(db, logger)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("department repository: %w", err)
	}
	examTypes, err := repository.NewExaminationTypeRepository(db, logger)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("examination type repository: %w", err)
	}
	classifications, err := repository.NewHealthClassificationRepository(db, logger)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("health classification repository: %w", err)
	}
	employees, err := repository.NewGormEmployeeRepository(db, logger)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("employee repository: %w", err)
	}
	records, err := repository.NewGormHealthRecordRepository(db, logger)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("health record repository: %w", err)
	}
	recordStaging, err := repository.NewRecordStagingRepository(db, logger)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("record staging repository: %w", err)
	}
	employeeStaging, err := repository.NewEmployeeStagingRepository(db, logger)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("employee staging repository: %w", err)
	}

	repos := service.Repositories{
		Employees:       employees,
		Records:         records,
		Departments:     departments,
		ExamTypes:       examTypes,
		Classifications: classifications,
	}

	return httpapi.Services{
		Departments:     service.NewCatalogService[models.Department, *models.Department](departments, "department", logger),
		ExamTypes:       service.NewCatalogService[models.ExaminationType, *models.ExaminationType](examTypes, "examination type", logger),
		Classifications: service.NewCatalogService[models.HealthClassification, *models.HealthClassification](classifications, "health classification", logger),
		Employees:       service.NewEmployeeService(employees, departments, logger),
		Records:         service.NewHealthRecordService(records, employees, examTypes, classifications, logger),
		RecordImport:    service.NewRecordImportService(db, recordStaging, repos, recordColumns, logger),
		EmployeeImport:  service.NewEmployeeImportService(db, employeeStaging, repos, employeeColumns, logger),
	}, nil
}

// Sweep drops staged rows of both import kinds older than ttl.
func (a *App) Sweep(ctx context.Context, ttl time.Duration) (int64, error) {
	records, err := a.Services.RecordImport.Sweep(ctx, ttl)
	if err != nil {
		return 0, err
	}
	employees, err := a.Services.EmployeeImport.Sweep(ctx, ttl)
	if err != nil {
		return records, err
	}
	return records + employees, nil
}

func (a *App) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Sweep(ctx, a.cfg.StagingTTL)
			if err != nil {
				a.logger.WithError(err).Error("Staging sweep failed")
				continue
			}
			if n > 0 {
				a.logger.WithField("rows", n).Info("Expired staging rows removed")
			}
		}
	}
}

// Serve runs the HTTP API, the staging sweeper and, when a token is
// configured, the Telegram bot until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.runSweeper(ctx)

	if a.cfg.TelegramEnabled() {
		if err := a.startBot(ctx); err != nil {
			return err
		}
	} else {
		a.logger.Info("TELEGRAM_BOT_TOKEN not set, Telegram bot disabled")
	}

	router := httpapi.NewRouter(a.Services, httpapi.Options{
		MetricsPath:    a.cfg.MetricsPath,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		MaxUploadBytes: a.cfg.MaxUploadMB << 20,
	}, a.logger)
	return httpapi.Serve(ctx, a.cfg.HTTPAddr, router, a.logger)
}

func (a *App) startBot(ctx context.Context) error {
	client, err := telegram.NewClient(a.cfg.TelegramToken, a.cfg.TelegramDebug)
	if err != nil {
		return fmt.Errorf("failed to create Telegram client: %w", err)
	}
	a.logger.Infof("Authorized on account %s", client.Bot.Self.UserName)

	botHandler := handler.NewHandler(
		client,
		a.Services.RecordImport,
		a.Services.EmployeeImport,
		a.cfg.TelegramAdminChatIDs,
		a.logger,
	)

	updates := client.Bot.GetUpdatesChan(client.UpdateConfig)
	go func() {
		<-ctx.Done()
		client.Bot.StopReceivingUpdates()
	}()
	go botHandler.HandleUpdates(ctx, updates)
	return nil
}

func (a *App) Close() {
	closeDB(a.db, a.logger)
}

func closeDB(db *gorm.DB, logger *logrus.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Infof("Error closing database: %v", err)
	}
}
