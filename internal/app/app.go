package app

import (
	"fmt"
	"os"
	"path"
	"runtime/debug"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/cookbook/config"
	"github.com/talkincode/cookbook/internal/catalog"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/internal/recipes"
	"github.com/talkincode/cookbook/internal/repository"
	"github.com/talkincode/cookbook/pkg/common"
	"github.com/talkincode/cookbook/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus

	recipeRepo     repository.RecipeRepository
	categoryRepo   repository.CategoryRepository
	ingredientRepo repository.IngredientRepository

	recipeSvc     *recipes.Service
	categorySvc   *catalog.CategoryService
	ingredientSvc *catalog.IngredientService
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ ServiceProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

// DB returns the gorm handle, or nil when running on the memory store.
func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) RecipeService() *recipes.Service {
	return a.recipeSvc
}

func (a *Application) CategoryService() *catalog.CategoryService {
	return a.categorySvc
}

func (a *Application) IngredientService() *catalog.IngredientService {
	return a.ingredientSvc
}

func (a *Application) Init(cfg *config.AppConfig) error {
	a.appConfig = cfg
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg.Logger)
	common.SetNodeID(cfg.System.NodeID)

	if err := cfg.InitDirs(); err != nil {
		zap.S().Warn("Failed to create work directories:", err)
	}

	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	cfg.Database.Type = common.IfEmptyStr(cfg.Database.Type, "memory")
	a.gormDB, err = getDatabase(cfg.Database, cfg.System.Workdir)
	if err != nil {
		return err
	}
	if a.gormDB != nil {
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
		if err := a.MigrateDB(false); err != nil {
			return errors.Wrap(err, "database migration failed")
		}
		a.recipeRepo = repository.NewGormRecipeRepository(a.gormDB)
		a.categoryRepo = repository.NewGormCategoryRepository(a.gormDB)
		a.ingredientRepo = repository.NewGormIngredientRepository(a.gormDB)
	} else {
		zap.S().Info("Using in-memory store, data is lost on restart")
		a.recipeRepo = repository.NewMemoryRecipeRepository()
		a.categoryRepo = repository.NewMemoryCategoryRepository()
		a.ingredientRepo = repository.NewMemoryIngredientRepository()
	}

	a.bus = EventBus.New()
	if err := a.subscribeEvents(); err != nil {
		return err
	}

	a.recipeSvc, err = recipes.NewService(a.recipeRepo, a.categoryRepo, a.ingredientRepo,
		recipes.WithEventBus(a.bus),
		recipes.WithWorkers(cfg.System.Workers),
	)
	if err != nil {
		return err
	}
	guard := catalog.WithDeleteLock(a.recipeSvc.CatalogLock())
	a.categorySvc = catalog.NewCategoryService(a.categoryRepo, a.recipeRepo, guard)
	a.ingredientSvc = catalog.NewIngredientService(a.ingredientRepo, a.recipeRepo, guard)

	if cfg.System.SeedCategories {
		a.checkCategories()
	}

	a.initJob()
	return nil
}

func initLogger(cfg config.LogConfig) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// getDatabase opens the configured store. The memory type has no gorm handle.
func getDatabase(cfg config.DBConfig, workdir string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	if cfg.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "memory":
		return nil, nil
	case "sqlite":
		dialector = sqlite.Open(sqlitePath(cfg, workdir))
	case "postgres":
		dsn := cfg.Dsn
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.Type)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	if cfg.Type == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
	}
	return db, nil
}

func sqlitePath(cfg config.DBConfig, workdir string) string {
	if cfg.Dsn != "" {
		return cfg.Dsn
	}
	name := cfg.Name
	if !strings.HasSuffix(name, ".db") {
		name += ".db"
	}
	if path.IsAbs(name) {
		return name
	}
	return path.Join(workdir, "data", name)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

// InitDb drops and recreates every table.
func (a *Application) InitDb() error {
	if a.gormDB == nil {
		return nil
	}
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	return a.gormDB.Migrator().AutoMigrate(domain.Tables...)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.bus != nil {
		a.bus.WaitAsync()
	}
	if a.recipeSvc != nil {
		a.recipeSvc.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	_ = metrics.Close()
	_ = zap.L().Sync()
}
