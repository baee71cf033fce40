package domain

import (
	"context"
)

// Assessor is the engine surface consumed by the tool server and the CLI.
type Assessor interface {
	Assess(ctx context.Context, req DrugRequest, patient PatientContext) (*Assessment, error)
	AssessBatch(ctx context.Context, items []BatchItem) []*Assessment
	ClassifySeverity(ctx context.Context, text string, patient *PatientContext) (*SeverityClassification, error)
	CheckInteractions(ctx context.Context, drugs []string, conditions []string) (*InteractionResult, error)
	InteractionDetail(ctx context.Context, drugA, drugB string) (*InteractionDetail, error)
	RenalAdjust(ctx context.Context, drug string, crcl float64, dose *float64) (*RenalAdjustment, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetEngineConfig() *EngineConfig
	GetCacheConfig() *CacheConfig
	Reload() error
	Validate() error
}
