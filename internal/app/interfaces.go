package app

import (
	"github.com/robfig/cron/v3"
	"github.com/talkincode/cookbook/config"
	"github.com/talkincode/cookbook/internal/catalog"
	"github.com/talkincode/cookbook/internal/recipes"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ServiceProvider exposes the business services to the transport layer
type ServiceProvider interface {
	RecipeService() *recipes.Service
	CategoryService() *catalog.CategoryService
	IngredientService() *catalog.IngredientService
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	ServiceProvider

	MigrateDB(track bool) error
	InitDb() error
}
